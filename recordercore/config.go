package recordercore

// BaseConfig contains shared, backend-agnostic driver configuration.
type BaseConfig struct {
	Prefix        string
	Compression   CompressionCodec
	MaxTapeBytes  int
	EncryptionKey []byte
}

package recorder

import "context"

// NewStore returns a tape store for the requested driver.
// Construction failures are deferred: the returned store reports the error
// from every call so a misconfigured backend fails the recorder scope on Load.
// @group Constructors
//
// Example: select driver explicitly
//
//	ctx := context.Background()
//	store := recorder.NewStore(ctx, recorder.StoreConfig{
//		Driver:  recorder.DriverFile,
//		FileDir: "testdata/tapes",
//	})
//	fmt.Println(store.Driver()) // file
func NewStore(ctx context.Context, cfg StoreConfig) Store {
	cfg = cfg.withDefaults()
	store, err := newBaseStore(ctx, cfg)
	if err != nil {
		return &errorStore{driver: cfg.Driver, err: err}
	}
	// Compress before encrypting; ciphertext does not compress.
	store, err = newEncryptingStore(store, cfg.EncryptionKey)
	if err != nil {
		return &errorStore{driver: cfg.Driver, err: err}
	}
	return newShapingStore(store, cfg.Compression, cfg.MaxTapeBytes)
}

func newBaseStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch cfg.Driver {
	case DriverNull:
		return newNullStore(), nil
	case DriverMemory:
		return newMemoryStore(), nil
	case DriverRedis:
		return newRedisStore(cfg.RedisClient, cfg.Prefix), nil
	case DriverMemcached:
		return newMemcachedStore(cfg.MemcachedAddresses, cfg.Prefix), nil
	case DriverNATS:
		return newNATSStore(cfg.NATSKeyValue, cfg.Prefix), nil
	case DriverDynamo:
		return newDynamoStore(ctx, cfg)
	case DriverSQL:
		return newSQLStore(ctx, cfg)
	default:
		return newFileStore(cfg.FileDir)
	}
}

// NewStoreWith builds a store using a driver and a set of functional options.
// @group Constructors
//
// Example: redis store (options)
//
//	ctx := context.Background()
//	redisClient := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
//	store := recorder.NewStoreWith(ctx, recorder.DriverRedis,
//		recorder.WithRedisClient(redisClient),
//		recorder.WithPrefix("tapes"),
//	)
//	fmt.Println(store.Driver()) // redis
func NewStoreWith(ctx context.Context, driver Driver, opts ...StoreOption) Store {
	cfg := StoreConfig{Driver: driver}
	for _, opt := range opts {
		cfg = opt(cfg)
	}
	return NewStore(ctx, cfg)
}

// NewFileStore is a convenience for a filesystem-backed tape store.
// @group Constructors
//
// Example: file helper
//
//	ctx := context.Background()
//	store := recorder.NewFileStore(ctx, "testdata/tapes")
//	fmt.Println(store.Driver()) // file
func NewFileStore(ctx context.Context, dir string, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverFile, append([]StoreOption{WithFileDir(dir)}, opts...)...)
}

// NewMemoryStore is a convenience for an in-process tape store.
// Tapes survive across recorder scopes but not across processes.
// @group Constructors
func NewMemoryStore(ctx context.Context, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverMemory, opts...)
}

// NewNullStore returns a store that never persists tapes.
// @group Constructors
func NewNullStore(ctx context.Context, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverNull, opts...)
}

// NewRedisStore is a convenience for a redis-backed tape store. Redis client is required.
// @group Constructors
func NewRedisStore(ctx context.Context, client RedisClient, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverRedis, append([]StoreOption{WithRedisClient(client)}, opts...)...)
}

// NewMemcachedStore is a convenience for a memcached-backed tape store.
// @group Constructors
func NewMemcachedStore(ctx context.Context, addrs []string, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverMemcached, append([]StoreOption{WithMemcachedAddresses(addrs...)}, opts...)...)
}

// NewNATSStore is a convenience for a NATS JetStream key-value tape store.
// @group Constructors
func NewNATSStore(ctx context.Context, kv NATSKeyValue, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverNATS, append([]StoreOption{WithNATSKeyValue(kv)}, opts...)...)
}

// NewDynamoStore is a convenience for a DynamoDB-backed tape store.
// @group Constructors
func NewDynamoStore(ctx context.Context, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverDynamo, opts...)
}

// NewSQLStore is a convenience for a database/sql-backed tape store.
// driverName is one of sqlite, pgx, postgres or mysql.
// @group Constructors
//
// Example: sqlite tapes
//
//	ctx := context.Background()
//	store := recorder.NewSQLStore(ctx, "sqlite", "file:tapes.db", "recorder_tapes")
//	fmt.Println(store.Driver()) // sql
func NewSQLStore(ctx context.Context, driverName, dsn, table string, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverSQL, append([]StoreOption{WithSQL(driverName, dsn, table)}, opts...)...)
}

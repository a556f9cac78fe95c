package recorder

import "github.com/goforj/recorder/recordercore"

// Driver identifies tape storage backend.
type Driver = recordercore.Driver

// Store persists tapes between recorder scopes.
type Store = recordercore.Store

const (
	DriverNull      = recordercore.DriverNull
	DriverFile      = recordercore.DriverFile
	DriverMemory    = recordercore.DriverMemory
	DriverMemcached = recordercore.DriverMemcached
	DriverDynamo    = recordercore.DriverDynamo
	DriverSQL       = recordercore.DriverSQL
	DriverRedis     = recordercore.DriverRedis
	DriverNATS      = recordercore.DriverNATS
)

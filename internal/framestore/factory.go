package framestore

import (
	"context"
	"fmt"
	"os"
)

// Open selects a framestore.Store implementation using environment variables.
//
//	KDERP_STORE_DRIVER: fs|s3|memory (default fs)
//	KDERP_STORE_FS_ROOT: directory root when driver=fs (default ./framedata)
//	(S3 specific variables documented in the s3 driver)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("KDERP_STORE_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		root := os.Getenv("KDERP_STORE_FS_ROOT")
		return NewFilesystem(root)
	case DriverS3:
		return OpenS3FromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown frame store driver %s", driver)
	}
}

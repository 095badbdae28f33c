package extension

import (
	"fmt"
	"log/slog"

	"github.com/xraph/grove"

	"github.com/xraph/gatehouse/datastore"
	"github.com/xraph/gatehouse/store"
	"github.com/xraph/gatehouse/store/memory"
	"github.com/xraph/gatehouse/store/mongo"
	"github.com/xraph/gatehouse/store/postgres"
	"github.com/xraph/gatehouse/store/sqlite"
)

// Backend names accepted by Config.Driver.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// NewDriver builds the backend named by driver. SQL and document backends
// need a grove database; the memory backend ignores it.
func NewDriver(driver string, db *grove.DB) (datastore.Driver, error) {
	switch driver {
	case "", DriverMemory:
		return memory.New(), nil
	case DriverPostgres, DriverSQLite, DriverMongo:
		if db == nil {
			return nil, fmt.Errorf("gatehouse: driver %q needs a grove database", driver)
		}
	default:
		return nil, fmt.Errorf("gatehouse: unknown driver %q", driver)
	}
	switch driver {
	case DriverPostgres:
		return postgres.New(db), nil
	case DriverSQLite:
		return sqlite.New(db), nil
	default:
		return mongo.New(db), nil
	}
}

// NewStore wraps the named backend in the tenant-scoped data store.
func NewStore(driver string, db *grove.DB, defaultTenant int64, logger *slog.Logger) (store.Store, error) {
	d, err := NewDriver(driver, db)
	if err != nil {
		return nil, err
	}
	return datastore.New(d,
		datastore.WithLogger(logger),
		datastore.WithDefaultTenant(defaultTenant),
	), nil
}

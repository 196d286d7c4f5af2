/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package provider provides functionality for managing database connections and clients.
package provider

import (
	"database/sql"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/bastionlabs/bastion/internal/system/config"
	"github.com/bastionlabs/bastion/internal/system/database/client"
	"github.com/bastionlabs/bastion/internal/system/database/model"
)

const (
	dataSourceTypePostgres = "postgres"
	dataSourceTypeSQLite   = "sqlite"
)

// DBProviderInterface defines the interface for getting database clients.
type DBProviderInterface interface {
	GetDBClient() (client.DBClientInterface, error)
}

// DBProvider is the implementation of DBProviderInterface. It manages a single
// shared client backed by the runtime datasource connection pool.
type DBProvider struct {
	runtimeClient client.DBClientInterface
	mu            sync.RWMutex
}

// NewDBProvider creates a new instance of DBProvider.
func NewDBProvider() DBProviderInterface {
	return &DBProvider{}
}

// GetDBClient returns the database client for the runtime datasource.
// The returned client manages its own connection pool and need not be closed per call.
func (d *DBProvider) GetDBClient() (client.DBClientInterface, error) {
	d.mu.RLock()
	if d.runtimeClient != nil {
		existing := d.runtimeClient
		d.mu.RUnlock()
		return existing, nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.runtimeClient != nil {
		return d.runtimeClient, nil
	}

	runtime := config.GetRuntime()
	dataSource := runtime.Config.Database.Runtime

	dsn, driverName, err := resolveDSN(dataSource, runtime.Home)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetConnMaxLifetime(time.Hour)
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	d.runtimeClient = client.NewDBClient(model.NewDB(db), dataSource.Type)
	return d.runtimeClient, nil
}

// resolveDSN builds the driver specific connection string for the datasource.
func resolveDSN(dataSource config.DataSource, home string) (string, string, error) {
	switch dataSource.Type {
	case dataSourceTypePostgres:
		dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
			dataSource.Hostname, dataSource.Port, dataSource.Name,
			dataSource.Username, dataSource.Password, dataSource.SSLMode)
		return dsn, "postgres", nil
	case dataSourceTypeSQLite:
		dsn := path.Join(home, dataSource.Path)
		if dataSource.Options != "" {
			dsn += "?" + dataSource.Options
		}
		return dsn, "sqlite", nil
	default:
		return "", "", fmt.Errorf("unsupported datasource type: %s", dataSource.Type)
	}
}

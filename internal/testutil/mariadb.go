// Package testutil starts throwaway database containers for integration
// tests and local development. Expects a reachable Docker daemon.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/taskpilot/taskpilot/data"
)

const (
	defaultImage    = "mariadb:11"
	defaultDatabase = "taskpilot"
	defaultUser     = "taskpilot"
	defaultPassword = "taskpilot"
	rootPassword    = "root"
)

// MariaDB is a running database container plus the coordinates to reach it.
type MariaDB struct {
	Container testcontainers.Container
	Host      string
	Port      string
	Database  string
	User      string
	Password  string
}

// Terminate stops and removes the container.
func (m *MariaDB) Terminate(ctx context.Context) error {
	if m.Container == nil {
		return nil
	}
	return m.Container.Terminate(ctx)
}

// StartMariaDB launches a MariaDB container, waits until it accepts
// connections, and applies the documents schema. The image can be overridden
// with TEST_DB_IMAGE.
func StartMariaDB(ctx context.Context) (*MariaDB, error) {
	image := os.Getenv("TEST_DB_IMAGE")
	if image == "" {
		image = defaultImage
	}

	tcpPort, err := nat.NewPort("tcp", "3306")
	if err != nil {
		return nil, fmt.Errorf("create port: %w", err)
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{string(tcpPort)},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": rootPassword,
				"MYSQL_DATABASE":      defaultDatabase,
				"MYSQL_USER":          defaultUser,
				"MYSQL_PASSWORD":      defaultPassword,
			},
			WaitingFor: wait.ForListeningPort(tcpPort).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start mariadb: %w", err)
	}

	mdb := &MariaDB{
		Container: container,
		Database:  defaultDatabase,
		User:      defaultUser,
		Password:  defaultPassword,
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = mdb.Terminate(ctx)
		return nil, fmt.Errorf("container host: %w", err)
	}
	mappedPort, err := container.MappedPort(ctx, tcpPort)
	if err != nil {
		_ = mdb.Terminate(ctx)
		return nil, fmt.Errorf("container port: %w", err)
	}
	mdb.Host = host
	mdb.Port = mappedPort.Port()

	if err := initSchema(mdb); err != nil {
		_ = mdb.Terminate(ctx)
		return nil, err
	}

	return mdb, nil
}

// initSchema applies the documents DDL once the server accepts connections.
func initSchema(mdb *MariaDB) error {
	dsn := fmt.Sprintf("root:%s@tcp(%s:%s)/%s", rootPassword, mdb.Host, mdb.Port, mdb.Database)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("connect for setup: %w", err)
	}
	defer db.Close()

	for i := 0; i < 30; i++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	if err != nil {
		return fmt.Errorf("mariadb not ready: %w", err)
	}

	for _, query := range splitStatements(data.InitdbMariaDBTables) {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("%w : when executing > %s", err, query)
		}
	}
	return nil
}

// splitStatements strips comment lines and splits the script on semicolons.
func splitStatements(script string) []string {
	var kept []string
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var statements []string
	for _, stmt := range strings.Split(strings.Join(kept, "\n"), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		statements = append(statements, stmt)
	}
	return statements
}

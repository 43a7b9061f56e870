package database

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/fs"
)

func Test_dsn(t *testing.T) {
	conf := &core.Config{Database: core.DatabaseConfig{
		Engine:        "postgres",
		Host:          "db",
		Port:          5432,
		Name:          "records",
		User:          "app",
		Password:      "s3cret",
		AdminUser:     "admin",
		AdminPassword: "root",
	}}

	tests := []struct {
		name       string
		dbName     string
		admin      bool
		disableTLS bool
		want       string
	}{
		{name: "app user", dbName: "records", want: "postgres://app:s3cret@db:5432/records?sslmode=require&timezone=utc"},
		{name: "admin", dbName: "postgres", admin: true, want: "postgres://admin:root@db:5432/postgres?sslmode=require&timezone=utc"},
		{name: "no TLS", dbName: "records", disableTLS: true, want: "postgres://app:s3cret@db:5432/records?sslmode=disable&timezone=utc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *conf
			c.Database.DisableTLS = tt.disableTLS
			assert.Equal(t, tt.want, dsn(tt.dbName, tt.admin, &c))
		})
	}

	t.Run("admin falls back to app user", func(t *testing.T) {
		c := *conf
		c.Database.AdminUser = ""
		assert.Equal(t, "postgres://app:s3cret@db:5432/postgres?sslmode=require&timezone=utc", dsn("postgres", true, &c))
	})
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(appfs.FS, MigrationsDir)
	assert.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "00001_create_catalog.sql")
}

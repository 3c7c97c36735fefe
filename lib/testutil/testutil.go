package testutil

import (
	"database/sql"
	"fmt"
	configlibsql "ratewatch-backend/lib/configutil/libsql"
	"ratewatch-backend/lib/telemetry"
	"testing"
)

type ServiceParams struct {
	Name string
	// if unspecified, it will skip setting up a db
	DbSchema string
	// if unspecified, it will use `:memory:`
	DbPath string
}

type ServiceResult struct {
	DB *sql.DB
}

func SetupService(t testing.TB, params ServiceParams) (ServiceResult, func()) {
	cleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))
	if params.DbSchema == "" {
		return ServiceResult{}, cleanup
	}

	dbpath := params.DbPath
	if dbpath == "" {
		dbpath = ":memory:"
	}
	database, err := configlibsql.Struct{File: dbpath}.OpenDB(params.DbSchema)
	if err != nil {
		t.Fatal(err)
	}

	closeAll := func() {
		database.Close()
		cleanup()
	}
	return ServiceResult{DB: database}, closeAll
}

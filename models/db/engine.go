// Copyright 2014 The Gogs Authors. All rights reserved.
// Copyright 2018 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package db

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/modules/setting"

	"xorm.io/xorm"
	"xorm.io/xorm/names"
	"xorm.io/xorm/schemas"

	_ "github.com/go-sql-driver/mysql" // Needed for the MySQL driver
	_ "github.com/lib/pq"              // Needed for the Postgresql driver
	_ "modernc.org/sqlite"             // Needed for the SQLite driver
)

var (
	x         *xorm.Engine
	tables    []any
	initFuncs []func() error
)

// Engine represents a xorm engine or session.
type Engine interface {
	Table(tableNameOrBean any) *xorm.Session
	Count(...any) (int64, error)
	Decr(column string, arg ...any) *xorm.Session
	Delete(...any) (int64, error)
	Exec(...any) (sql.Result, error)
	Find(any, ...any) error
	Get(beans ...any) (bool, error)
	ID(any) *xorm.Session
	In(string, ...any) *xorm.Session
	Incr(column string, arg ...any) *xorm.Session
	Insert(...any) (int64, error)
	Iterate(any, xorm.IterFunc) error
	Join(joinOperator string, tablename, condition any, args ...any) *xorm.Session
	SQL(any, ...any) *xorm.Session
	Where(any, ...any) *xorm.Session
	Asc(colNames ...string) *xorm.Session
	Desc(colNames ...string) *xorm.Session
	Limit(limit int, start ...int) *xorm.Session
	NoAutoTime() *xorm.Session
	SumInt(bean any, columnName string) (res int64, err error)
	Select(string) *xorm.Session
	SetExpr(string, any) *xorm.Session
	NotIn(string, ...any) *xorm.Session
	OrderBy(any, ...any) *xorm.Session
	Exist(...any) (bool, error)
	Distinct(...string) *xorm.Session
	Query(...any) ([]map[string][]byte, error)
	Cols(...string) *xorm.Session
	MustCols(...string) *xorm.Session
	AllCols() *xorm.Session
	Context(ctx context.Context) *xorm.Session
	Ping() error
}

// TableInfo returns table's information via an object
func TableInfo(v any) (*schemas.Table, error) {
	return x.TableInfo(v)
}

// RegisterModel registers model, if initFunc provided, it will be invoked after data model sync
func RegisterModel(bean any, initFunc ...func() error) {
	tables = append(tables, bean)
	if len(initFunc) > 0 && initFunc[0] != nil {
		initFuncs = append(initFuncs, initFunc[0])
	}
}

func driverName() string {
	if setting.Database.Type.IsSQLite3() {
		// modernc registers itself as "sqlite", xorm maps it onto its sqlite3 dialect
		return "sqlite"
	}
	return setting.Database.Type.String()
}

// NewEngine returns a new xorm engine from the configuration
func NewEngine() (*xorm.Engine, error) {
	connStr, err := setting.DBConnStr()
	if err != nil {
		return nil, err
	}

	engine, err := xorm.NewEngine(driverName(), connStr)
	if err != nil {
		return nil, err
	}
	if setting.Database.Type.IsPostgreSQL() && len(setting.Database.Schema) > 0 {
		engine.Dialect().SetParams(map[string]string{"DEFAULT_SCHEMA": setting.Database.Schema})
	}
	engine.SetSchema(setting.Database.Schema)
	engine.SetMapper(names.GonicMapper{})
	// WARNING: for serv command, MUST remove the output to os.stdout,
	// so use log file to instead print to stdout.
	engine.SetLogger(NewXORMLogger(setting.Database.LogSQL))
	engine.ShowSQL(setting.Database.LogSQL)
	engine.SetMaxOpenConns(setting.Database.MaxOpenConns)
	engine.SetMaxIdleConns(setting.Database.MaxIdleConns)
	engine.SetConnMaxLifetime(setting.Database.ConnMaxLifetime)
	if setting.Database.Type.IsSQLite3() && setting.Database.Path == ":memory:" {
		// every connection to :memory: is a separate database
		engine.SetMaxOpenConns(1)
	}
	return engine, nil
}

// SetDefaultEngine sets the default engine for db
func SetDefaultEngine(ctx context.Context, eng *xorm.Engine) {
	x = eng
	DefaultContext = &Context{Context: ctx, engine: x}
}

// UnsetDefaultEngine closes and unsets the default engine
// We hope the SetDefaultEngine and UnsetDefaultEngine can be paired, but it's impossible now,
// there are many calls to InitEngine -> SetDefaultEngine directly to overwrite the `x` and DefaultContext without close
// Global database engine related functions are all racy and there is no graceful close right now.
func UnsetDefaultEngine() {
	if x != nil {
		_ = x.Close()
		x = nil
	}
	DefaultContext = nil
}

// InitEngine initializes the xorm.Engine and sets it as db.DefaultContext
// This function must never call .Sync() if the provided migration function fails.
// When called from the "doctor" command, the migration function is a version check
// that prevents the doctor from fixing anything in the database if the migration level
// is different from the expected value.
func InitEngine(ctx context.Context) error {
	var (
		xormEngine *xorm.Engine
		err        error
	)
	for i := 0; i <= setting.Database.DBConnectRetries; i++ {
		if xormEngine, err = NewEngine(); err == nil {
			if err = xormEngine.PingContext(ctx); err == nil {
				break
			}
			_ = xormEngine.Close()
		}
		if i == setting.Database.DBConnectRetries {
			break
		}
		log.Error("ORM engine initialization attempt #%d/%d failed. Error: %v", i+1, setting.Database.DBConnectRetries, err)
		log.Info("Backing off for %d seconds", int64(setting.Database.DBConnectBackoff/time.Second))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(setting.Database.DBConnectBackoff):
		}
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	SetDefaultEngine(ctx, xormEngine)
	return nil
}

// Ping checks the database connection of the default engine
func Ping(ctx context.Context) error {
	return x.PingContext(ctx)
}

// SyncAllTables sync the schemas of all tables and runs the model init funcs
func SyncAllTables() error {
	if err := x.Sync(tables...); err != nil {
		return fmt.Errorf("sync database struct error: %w", err)
	}
	for _, initFunc := range initFuncs {
		if err := initFunc(); err != nil {
			return fmt.Errorf("initFunc failed: %w", err)
		}
	}
	return nil
}

// NamesToBean return a list of beans or an error
func NamesToBean(names ...string) ([]any, error) {
	beans := []any{}
	if len(names) == 0 {
		beans = append(beans, tables...)
		return beans, nil
	}
	// Need to map provided names to beans...
	beanMap := make(map[string]any)
	for _, bean := range tables {
		beanMap[strings.ToLower(reflect.Indirect(reflect.ValueOf(bean)).Type().Name())] = bean
		beanMap[strings.ToLower(x.TableName(bean))] = bean
		beanMap[strings.ToLower(x.TableName(bean, true))] = bean
	}

	gotBean := make(map[any]bool)
	for _, name := range names {
		bean, ok := beanMap[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("no table found that matches: %s", name)
		}
		if !gotBean[bean] {
			beans = append(beans, bean)
			gotBean[bean] = true
		}
	}
	return beans, nil
}

// CountOrphans reports the rows of a child table whose parent row is gone
func CountOrphans(ctx context.Context, subject, refObject, joinCond string) (int64, error) {
	return GetEngine(ctx).
		Table("`"+subject+"`").
		Join("LEFT", "`"+refObject+"`", joinCond).
		Where("`"+refObject+"`.id IS NULL").
		Select("COUNT(`" + subject + "`.`id`)").
		Count()
}

// DeleteOrphans deletes the rows of a child table whose parent row is gone
func DeleteOrphans(ctx context.Context, subject, refObject, joinCond string) error {
	subQuery := "SELECT `" + subject + "`.id FROM `" + subject + "` LEFT JOIN `" + refObject + "` ON " + joinCond + " WHERE `" + refObject + "`.id IS NULL"
	_, err := GetEngine(ctx).Exec("DELETE FROM `" + subject + "` WHERE id IN (SELECT id FROM (" + subQuery + ") sq)")
	return err
}

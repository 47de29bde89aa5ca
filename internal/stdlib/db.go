package stdlib

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"flowlang/internal/errs"
	"flowlang/internal/value"
)

// driverNames maps the names scripts use to registered sql drivers.
var driverNames = map[string]string{
	"mysql":     "mysql",
	"postgres":  "postgres",
	"sqlite":    "sqlite3",
	"sqlite3":   "sqlite3",
	"sqlserver": "sqlserver",
	"mssql":     "sqlserver",
}

// dbManager tracks open database handles by name.
type dbManager struct {
	mu    sync.Mutex
	conns map[string]*sql.DB
}

func newDBManager() *dbManager {
	return &dbManager{conns: make(map[string]*sql.DB)}
}

func (m *dbManager) add(id string, db *sql.DB) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.conns[id]; exists {
		return errs.Runtime("db_connect: connection %s already open", id)
	}
	m.conns[id] = db
	return nil
}

func (m *dbManager) get(id string) (*sql.DB, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	db, ok := m.conns[id]
	return db, ok
}

func (m *dbManager) remove(id string) (*sql.DB, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	db, ok := m.conns[id]
	delete(m.conns, id)
	return db, ok
}

func (r *Registry) registerDB() {
	r.register("db_connect", func(args []value.Value) (value.Value, error) {
		if err := exactly("db_connect", args, 3); err != nil {
			return nil, err
		}
		id, err := wantString("db_connect", args[0])
		if err != nil {
			return nil, err
		}
		driver, err := wantString("db_connect", args[1])
		if err != nil {
			return nil, err
		}
		dsn, err := wantString("db_connect", args[2])
		if err != nil {
			return nil, err
		}
		name, ok := driverNames[driver]
		if !ok {
			return nil, errs.Runtime("db_connect: unsupported driver %q", driver)
		}
		db, oerr := sql.Open(name, dsn)
		if oerr != nil {
			return nil, errs.Runtime("db_connect: %v", oerr)
		}
		db.SetMaxOpenConns(10)
		db.SetConnMaxLifetime(time.Hour)
		if perr := db.Ping(); perr != nil {
			db.Close()
			return nil, errs.Runtime("db_connect %s: %v", id, perr)
		}
		if aerr := r.db.add(id, db); aerr != nil {
			db.Close()
			return nil, aerr
		}
		return true, nil
	})

	r.register("db_query", func(args []value.Value) (value.Value, error) {
		if err := atLeast("db_query", args, 2); err != nil {
			return nil, err
		}
		id, err := wantString("db_query", args[0])
		if err != nil {
			return nil, err
		}
		query, err := wantString("db_query", args[1])
		if err != nil {
			return nil, err
		}
		db, ok := r.db.get(id)
		if !ok {
			return nil, errs.Runtime("db_query: unknown connection %s", id)
		}
		rows, qerr := db.Query(query, sqlArgs(args[2:])...)
		if qerr != nil {
			return nil, errs.Runtime("db_query: %v", qerr)
		}
		defer rows.Close()
		return scanRows(rows)
	})

	r.register("db_execute", func(args []value.Value) (value.Value, error) {
		if err := atLeast("db_execute", args, 2); err != nil {
			return nil, err
		}
		id, err := wantString("db_execute", args[0])
		if err != nil {
			return nil, err
		}
		query, err := wantString("db_execute", args[1])
		if err != nil {
			return nil, err
		}
		db, ok := r.db.get(id)
		if !ok {
			return nil, errs.Runtime("db_execute: unknown connection %s", id)
		}
		result, xerr := db.Exec(query, sqlArgs(args[2:])...)
		if xerr != nil {
			return nil, errs.Runtime("db_execute: %v", xerr)
		}
		affected, _ := result.RowsAffected()
		return affected, nil
	})

	r.register("db_close", func(args []value.Value) (value.Value, error) {
		if err := exactly("db_close", args, 1); err != nil {
			return nil, err
		}
		id, err := wantString("db_close", args[0])
		if err != nil {
			return nil, err
		}
		db, ok := r.db.remove(id)
		if !ok {
			return nil, errs.Runtime("db_close: unknown connection %s", id)
		}
		if cerr := db.Close(); cerr != nil {
			return nil, errs.Runtime("db_close: %v", cerr)
		}
		return true, nil
	})
}

func sqlArgs(vals []value.Value) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

// scanRows converts a result set into an array of objects keyed by column.
func scanRows(rows *sql.Rows) (value.Value, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, errs.Runtime("db_query: %v", err)
	}
	result := value.NewArray(nil)
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if serr := rows.Scan(ptrs...); serr != nil {
			return nil, errs.Runtime("db_query: %v", serr)
		}
		row := value.NewObject()
		for i, col := range cols {
			row.Fields[col] = sqlValue(cells[i])
		}
		result.Elements = append(result.Elements, row)
	}
	if rerr := rows.Err(); rerr != nil {
		return nil, errs.Runtime("db_query: %v", rerr)
	}
	return result, nil
}

func sqlValue(cell any) value.Value {
	switch v := cell.(type) {
	case nil:
		return nil
	case int64:
		return v
	case float64:
		return v
	case bool:
		return v
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return value.ToString(v)
	}
}

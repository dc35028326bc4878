package registry

import "context"

// Disposable is implemented by instances that hold resources.
// Cached instances implementing it are closed when their scope ends or
// when the registry is closed.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	Close() error
}

// DisposableWithContext is the context-aware form of Disposable.
// It is preferred over Disposable when an instance implements both.
type DisposableWithContext interface {
	Close(ctx context.Context) error
}

// Package cleanup drops every view and table the load creates.
package cleanup

import (
	"context"

	"churndb/internal/database"
	"churndb/internal/observability"
	"churndb/internal/schema"
)

// ObjectResult is the outcome of dropping one object
type ObjectResult struct {
	Object schema.Object
	Err    error
}

// Result lists every attempted drop in order
type Result struct {
	Objects []ObjectResult
	// FKError holds a failure to re-enable foreign key enforcement
	FKError error
}

// Failed returns how many drops failed
func (r *Result) Failed() int {
	n := 0
	for _, o := range r.Objects {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Cleaner drops project objects from one session
type Cleaner struct {
	session *database.Session
	logger  *observability.Logger
}

// New creates a cleaner
func New(session *database.Session) *Cleaner {
	return &Cleaner{session: session, logger: session.Logger()}
}

// Run drops views, then tables. Each drop is attempted even when an
// earlier one failed, and foreign key enforcement is always restored.
func (c *Cleaner) Run(ctx context.Context) (result *Result) {
	result = &Result{}
	conn := c.session.Conn()
	dialect := c.session.Dialect()

	disable, enable := dialect.ForeignKeyToggles()
	if disable != "" {
		if _, err := conn.ExecContext(ctx, disable); err != nil {
			c.logger.WarnWithFields("Failed to disable foreign key checks", map[string]interface{}{"error": err})
		}
		defer func() {
			// ctx may already be cancelled; enforcement must still be restored
			if _, err := conn.ExecContext(context.WithoutCancel(ctx), enable); err != nil {
				result.FKError = err
				c.logger.ErrorWithFields("Failed to re-enable foreign key checks", map[string]interface{}{"error": err})
			}
		}()
	}

	for _, obj := range schema.DropOrder() {
		stmt := dialect.DropTableSQL(obj.Name)
		if obj.Type == schema.ObjectTypeView {
			stmt = dialect.DropViewSQL(obj.Name)
		}

		_, err := conn.ExecContext(ctx, stmt)
		if err != nil && dialect.IsBenign(err) {
			err = nil
		}
		result.Objects = append(result.Objects, ObjectResult{Object: obj, Err: err})

		fields := map[string]interface{}{"object": obj.Name, "type": string(obj.Type)}
		if err != nil {
			fields["error"] = err
			c.logger.WarnWithFields("Failed to drop object", fields)
			continue
		}
		c.logger.DebugWithFields("Dropped object", fields)
	}

	c.logger.InfoWithFields("Cleanup finished", map[string]interface{}{
		"objects": len(result.Objects),
		"failed":  result.Failed(),
	})
	return result
}

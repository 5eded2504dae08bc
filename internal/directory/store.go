package directory

import "context"

// Store is the read/write contract for directory entities. The scan engine
// only reads; creation happens through the administrative endpoints.
type Store interface {
	CreateVisitor(ctx context.Context, v Visitor) (Visitor, error)
	FindVisitor(ctx context.Context, id int64) (Visitor, error)
	CreateEmployee(ctx context.Context, e Employee) (Employee, error)
	FindEmployee(ctx context.Context, id int64) (Employee, error)
	CreateSite(ctx context.Context, s Site) (Site, error)
	FindSite(ctx context.Context, id int64) (Site, error)
	FindOperatorByUsername(ctx context.Context, username string) (Operator, error)
	CreateOperator(ctx context.Context, o Operator) (Operator, error)
}

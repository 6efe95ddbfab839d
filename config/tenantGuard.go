package config

import (
	"context"
	"strings"

	"github.com/mmdatafocus/bom_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantGuardPlugin scopes queries, updates and deletes on tables with a business_id
// column to the business_id carried by the statement context.
//
// NOTE:
// - Raw SQL is not covered; raw queries must filter business_id themselves.
// - Skip-tenant-scope contexts bypass the guard.
type TenantGuardPlugin struct{}

func NewTenantGuardPlugin() *TenantGuardPlugin { return &TenantGuardPlugin{} }

func (p *TenantGuardPlugin) Name() string { return "tenant_guard" }

func (p *TenantGuardPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	registrations := []struct {
		name     string
		register func() error
	}{
		{"query", func() error {
			return cb.Query().Before("gorm:query").Register("tenant_guard:query", tenantGuardCallback)
		}},
		{"row", func() error {
			return cb.Row().Before("gorm:row").Register("tenant_guard:row", tenantGuardCallback)
		}},
		{"update", func() error {
			return cb.Update().Before("gorm:update").Register("tenant_guard:update", tenantGuardCallback)
		}},
		{"delete", func() error {
			return cb.Delete().Before("gorm:delete").Register("tenant_guard:delete", tenantGuardCallback)
		}},
	}
	for _, r := range registrations {
		if err := r.register(); err != nil {
			return err
		}
	}
	return nil
}

func tenantGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil || db.Statement.Context == nil {
		return
	}
	ctx := db.Statement.Context
	if shouldBypassTenantScope(ctx) {
		return
	}
	businessId, _ := appctx.GetString(ctx, appctx.ContextKeyBusinessId)
	if businessId == "" {
		return
	}
	if db.Statement.Schema == nil || db.Statement.Schema.LookUpField("business_id") == nil {
		return
	}
	// an explicit tenant filter wins
	if whereMentionsBusinessId(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "business_id"},
				Value:  businessId,
			},
		},
	})
}

func shouldBypassTenantScope(ctx context.Context) bool {
	skip, _ := appctx.GetBool(ctx, appctx.ContextKeySkipTenantScope)
	return skip
}

func whereMentionsBusinessId(c clause.Clause) bool {
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprMentionsBusinessId(e) {
			return true
		}
	}
	return false
}

func exprMentionsBusinessId(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return isBusinessIdColumn(v.Column)
	case clause.IN:
		return isBusinessIdColumn(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprMentionsBusinessId(x) {
				return true
			}
		}
	case clause.Expr:
		// "business_id = ?" style conditions land here
		return strings.Contains(strings.ToLower(v.SQL), "business_id")
	}
	return false
}

func isBusinessIdColumn(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "business_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "business_id")
	}
	return false
}

// internal/repository/postgres/pricing_plan_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"checkout-service/internal/domain/catalog"
	xerrors "checkout-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PricingPlanRepository struct {
	db *pgxpool.Pool
}

func NewPricingPlanRepository(db *pgxpool.Pool) *PricingPlanRepository {
	return &PricingPlanRepository{db: db}
}

const planColumns = `
	id, product_name, package, measure, description,
	price, currency, is_promotion, promotion_price,
	recurring_interval, recurring_interval_count,
	annual_price, annual_size_discount,
	is_active, created_at, updated_at
`

// FindByID retrieves a pricing plan by ID.
func (r *PricingPlanRepository) FindByID(ctx context.Context, id int64) (*catalog.PricingPlan, error) {
	query := fmt.Sprintf(`SELECT %s FROM pricing_plans WHERE id = $1`, planColumns)

	plan, err := scanPlan(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pricing plan: %w", err)
	}

	return plan, nil
}

// List retrieves active pricing plans with filters.
func (r *PricingPlanRepository) List(ctx context.Context, filters *catalog.PlanListFilters) ([]catalog.PricingPlan, int64, error) {
	conditions := []string{"is_active = TRUE"}
	args := []interface{}{}
	argPos := 1

	if filters.Currency != nil {
		conditions = append(conditions, fmt.Sprintf("currency = $%d", argPos))
		args = append(args, strings.ToUpper(*filters.Currency))
		argPos++
	}

	if filters.Recurring != nil {
		if *filters.Recurring {
			conditions = append(conditions, "recurring_interval IS NOT NULL")
		} else {
			conditions = append(conditions, "recurring_interval IS NULL")
		}
	}

	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(product_name ILIKE $%d OR package ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM pricing_plans %s", whereClause)
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count pricing plans: %w", err)
	}

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	offset := (filters.Page - 1) * filters.PageSize

	query := fmt.Sprintf(`
		SELECT %s
		FROM pricing_plans
		%s
		ORDER BY product_name, package
		LIMIT $%d OFFSET $%d
	`, planColumns, whereClause, argPos, argPos+1)
	args = append(args, filters.PageSize, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pricing plans: %w", err)
	}
	defer rows.Close()

	plans := []catalog.PricingPlan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan pricing plan: %w", err)
		}
		plans = append(plans, *plan)
	}

	return plans, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*catalog.PricingPlan, error) {
	var plan catalog.PricingPlan
	err := row.Scan(
		&plan.ID, &plan.ProductName, &plan.Package, &plan.Measure, &plan.Description,
		&plan.PriceMinor, &plan.Currency, &plan.IsPromotion, &plan.PromotionPriceMinor,
		&plan.RecurringInterval, &plan.RecurringIntervalCount,
		&plan.AnnualPriceMinor, &plan.AnnualSizeDiscount,
		&plan.IsActive, &plan.CreatedAt, &plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Legacy rows store the annual discount as a fractional multiplier.
	plan.AnnualSizeDiscount = catalog.NormalizeAnnualDiscount(plan.AnnualSizeDiscount)

	return &plan, nil
}

package repository

import (
	"context"

	"github.com/amirasaad/deposit/pkg/domain/payment"
	repo "github.com/amirasaad/deposit/pkg/repository/payment"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// attemptKey is the idempotency key of attempt appends.
var attemptKey = []clause.Column{
	{Name: "payment_id"},
	{Name: "session_reference"},
	{Name: "status"},
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a gorm backed payment store.
func NewPaymentRepository(db *gorm.DB) repo.Repository {
	return &paymentRepository{db: db}
}

// Create implements payment.Repository.
func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	m := mapPaymentToModel(p)
	err := WrapError(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(&m).Error
		})
	})
	if err != nil {
		return err
	}
	p.ID = m.ID
	return nil
}

// Get implements payment.Repository.
func (r *paymentRepository) Get(ctx context.Context, id int64) (*payment.Payment, error) {
	var m Payment
	err := WrapError(func() error {
		return r.db.WithContext(
			ctx,
		).Preload(
			"Attempts",
			func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") },
		).First(
			&m,
			id,
		).Error
	})
	if err != nil {
		return nil, err
	}
	return mapModelToPayment(&m), nil
}

// AppendAttempt implements payment.Repository. The insert is a no-op when a
// row with the same idempotency key exists, which also settles concurrent
// duplicate appends inside the database.
func (r *paymentRepository) AppendAttempt(
	ctx context.Context,
	paymentID int64,
	a payment.Attempt,
) (bool, error) {
	m := mapAttemptToModel(paymentID, a)
	res := r.db.WithContext(
		ctx,
	).Clauses(
		clause.OnConflict{Columns: attemptKey, DoNothing: true},
	).Create(
		&m,
	)
	if res.Error != nil {
		return false, MapGormErrorToDomain(res.Error)
	}
	return res.RowsAffected == 1, nil
}

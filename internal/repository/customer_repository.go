package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/servicejobs/internal/model"
	"github.com/Freeeeeet/servicejobs/internal/repository/base"
)

type CustomerRepository struct {
	*base.Repository
}

func NewCustomerRepository(b *base.Repository) *CustomerRepository {
	return &CustomerRepository{Repository: b}
}

// Create создаёт клиента
func (r *CustomerRepository) Create(ctx context.Context, c *model.Customer) error {
	query := `
		INSERT INTO customers (name, phone, email, address)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.Pool().QueryRow(ctx, query, c.Name, c.Phone, c.Email, c.Address).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create customer: %w", err)
	}

	return nil
}

// GetByID возвращает nil, nil если клиента нет
func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*model.Customer, error) {
	query := `
		SELECT id, name, phone, email, address, created_at
		FROM customers
		WHERE id = $1
	`

	var c model.Customer
	err := r.Pool().QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.CreatedAt)
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get customer by id: %w", err)
	}

	return &c, nil
}

func (r *CustomerRepository) List(ctx context.Context) ([]*model.Customer, error) {
	query := `
		SELECT id, name, phone, email, address, created_at
		FROM customers
		ORDER BY name
	`

	rows, err := r.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []*model.Customer
	for rows.Next() {
		c := &model.Customer{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}

	return customers, rows.Err()
}

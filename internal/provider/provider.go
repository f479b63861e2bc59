package provider

import (
	"context"
	"fmt"

	"github.com/evermart/order-service/internal/entities"

	"github.com/google/uuid"
)

type InventoryRepo interface {
	RetrievePartialProductDetails(ctx context.Context, productIDs []uuid.UUID) ([]entities.ProductStockSnapshot, error)
	ModifyStock(ctx context.Context, adjustments []entities.StockAdjustment) error
}

type AdminRepo interface {
	AdminExists(ctx context.Context, adminID uuid.UUID) (bool, error)
}

// Provider собирает updater'ы по снапшотам остатков и применяет накопленные
// поправки обратно к хранилищу.
type Provider struct {
	inventory InventoryRepo
	admins    AdminRepo
}

func New(inventory InventoryRepo, admins AdminRepo) *Provider {
	return &Provider{inventory: inventory, admins: admins}
}

// RetrieveProductUpdaters строит свежие updater'ы для каждого запрошенного
// товара. Если товара нет в хранилище, возвращает InvalidProductError.
func (p *Provider) RetrieveProductUpdaters(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*entities.ProductUpdater, error) {
	snapshots, err := p.inventory.RetrievePartialProductDetails(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve product details: %w", err)
	}

	updaters := make(map[uuid.UUID]*entities.ProductUpdater, len(snapshots))
	for _, snapshot := range snapshots {
		updater, err := entities.NewProductUpdater(snapshot)
		if err != nil {
			return nil, fmt.Errorf("failed to build product updater: %w", err)
		}
		updaters[snapshot.ProductID] = updater
	}

	for _, id := range productIDs {
		if _, ok := updaters[id]; !ok {
			return nil, &entities.InvalidProductError{ProductID: id}
		}
	}
	return updaters, nil
}

// ApplyProductUpdaters пишет чистые поправки одним батчем. Вызывать только
// внутри той же транзакции, что сохраняет заказ.
func (p *Provider) ApplyProductUpdaters(ctx context.Context, updaters map[uuid.UUID]*entities.ProductUpdater) error {
	var adjustments []entities.StockAdjustment
	for _, updater := range updaters {
		adjustments = append(adjustments, updater.StockAdjustments()...)
	}
	if len(adjustments) == 0 {
		return nil
	}
	if err := p.inventory.ModifyStock(ctx, adjustments); err != nil {
		return fmt.Errorf("failed to apply stock adjustments: %w", err)
	}
	return nil
}

func (p *Provider) CheckAdminExists(ctx context.Context, adminID uuid.UUID) error {
	exists, err := p.admins.AdminExists(ctx, adminID)
	if err != nil {
		return fmt.Errorf("failed to check admin existence: %w", err)
	}
	if !exists {
		return &entities.InvalidCreatorError{AdminID: adminID}
	}
	return nil
}

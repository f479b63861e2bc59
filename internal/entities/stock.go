package entities

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Снапшоты читаются из хранилища один раз, дальше вся работа идёт
// в памяти через updater'ы.
type ProductStockSnapshot struct {
	ProductID uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
	Variants  []VariantStockSnapshot
}

type VariantStockSnapshot struct {
	VariantID uuid.UUID
	Sizes     []SizeStockSnapshot
}

type SizeStockSnapshot struct {
	SizeValue string
	Stock     int
}

// StockAdjustment представляет одну строку батча для bulk-изменения остатков.
type StockAdjustment struct {
	ProductID  uuid.UUID
	VariantID  uuid.UUID
	SizeValue  string
	Adjustment int
}

// SizeUpdater держит остаток одного размера как снапшот плюс накопленную
// знаковую поправку. Само хранилище он не трогает.
type SizeUpdater struct {
	sizeValue    string
	initialStock int
	adjustment   int
}

func NewSizeUpdater(snapshot SizeStockSnapshot) *SizeUpdater {
	return &SizeUpdater{
		sizeValue:    snapshot.SizeValue,
		initialStock: snapshot.Stock,
	}
}

func (u *SizeUpdater) SizeValue() string {
	return u.sizeValue
}

func (u *SizeUpdater) CurrentStock() int {
	return u.initialStock + u.adjustment
}

func (u *SizeUpdater) Adjustment() int {
	return u.adjustment
}

func (u *SizeUpdater) HasEnoughStock(stockToCheck int) bool {
	return u.CurrentStock() >= stockToCheck
}

// SubtractStock уменьшает поправку; при нехватке остатка ничего не меняет.
func (u *SizeUpdater) SubtractStock(stockToSubtract int) error {
	current := u.CurrentStock()
	if current-stockToSubtract < 0 {
		return &NotEnoughStockError{
			SizeValue: u.sizeValue,
			Requested: stockToSubtract,
			Available: current,
		}
	}
	u.adjustment -= stockToSubtract
	return nil
}

// AddStock без верхней границы: возврат резерва всегда проходит.
func (u *SizeUpdater) AddStock(stockToAdd int) {
	u.adjustment += stockToAdd
}

type VariantUpdater struct {
	variantID uuid.UUID
	sizes     map[string]*SizeUpdater
}

func NewVariantUpdater(snapshot VariantStockSnapshot) (*VariantUpdater, error) {
	sizes := make(map[string]*SizeUpdater, len(snapshot.Sizes))
	for _, s := range snapshot.Sizes {
		if _, ok := sizes[s.SizeValue]; ok {
			return nil, &DuplicateStockEntryError{Key: s.SizeValue}
		}
		sizes[s.SizeValue] = NewSizeUpdater(s)
	}
	return &VariantUpdater{variantID: snapshot.VariantID, sizes: sizes}, nil
}

func (u *VariantUpdater) VariantID() uuid.UUID {
	return u.variantID
}

func (u *VariantUpdater) HasSize(sizeValue string) bool {
	_, ok := u.sizes[sizeValue]
	return ok
}

func (u *VariantUpdater) size(sizeValue string) (*SizeUpdater, error) {
	s, ok := u.sizes[sizeValue]
	if !ok {
		return nil, &SizeNotAvailableError{VariantID: u.variantID, SizeValue: sizeValue}
	}
	return s, nil
}

func (u *VariantUpdater) HasEnoughStock(sizeValue string, stockToCheck int) (bool, error) {
	s, err := u.size(sizeValue)
	if err != nil {
		return false, err
	}
	return s.HasEnoughStock(stockToCheck), nil
}

func (u *VariantUpdater) SubtractStock(sizeValue string, stockToSubtract int) error {
	s, err := u.size(sizeValue)
	if err != nil {
		return err
	}
	return s.SubtractStock(stockToSubtract)
}

func (u *VariantUpdater) AddStock(sizeValue string, stockToAdd int) error {
	s, err := u.size(sizeValue)
	if err != nil {
		return err
	}
	s.AddStock(stockToAdd)
	return nil
}

func (u *VariantUpdater) CurrentStock(sizeValue string) (int, error) {
	s, err := u.size(sizeValue)
	if err != nil {
		return 0, err
	}
	return s.CurrentStock(), nil
}

// ProductUpdater представляет единицу складской мутации: набор поправок
// по одному товару, который провайдер применяет к хранилищу внутри транзакции.
type ProductUpdater struct {
	productID uuid.UUID
	name      string
	unitPrice decimal.Decimal
	variants  map[uuid.UUID]*VariantUpdater
}

func NewProductUpdater(snapshot ProductStockSnapshot) (*ProductUpdater, error) {
	variants := make(map[uuid.UUID]*VariantUpdater, len(snapshot.Variants))
	for _, v := range snapshot.Variants {
		if _, ok := variants[v.VariantID]; ok {
			return nil, &DuplicateStockEntryError{Key: v.VariantID.String()}
		}
		vu, err := NewVariantUpdater(v)
		if err != nil {
			return nil, err
		}
		variants[v.VariantID] = vu
	}
	return &ProductUpdater{
		productID: snapshot.ProductID,
		name:      snapshot.Name,
		unitPrice: snapshot.UnitPrice,
		variants:  variants,
	}, nil
}

func (u *ProductUpdater) ProductID() uuid.UUID {
	return u.productID
}

func (u *ProductUpdater) Name() string {
	return u.name
}

func (u *ProductUpdater) UnitPrice() decimal.Decimal {
	return u.unitPrice
}

func (u *ProductUpdater) HasVariant(variantID uuid.UUID) bool {
	_, ok := u.variants[variantID]
	return ok
}

func (u *ProductUpdater) variant(variantID uuid.UUID) (*VariantUpdater, error) {
	v, ok := u.variants[variantID]
	if !ok {
		return nil, &InvalidVariantError{VariantID: variantID}
	}
	return v, nil
}

func (u *ProductUpdater) HasSizeForVariant(variantID uuid.UUID, sizeValue string) (bool, error) {
	v, err := u.variant(variantID)
	if err != nil {
		return false, err
	}
	return v.HasSize(sizeValue), nil
}

func (u *ProductUpdater) HasEnoughStockForVariant(variantID uuid.UUID, sizeValue string, stockToCheck int) (bool, error) {
	v, err := u.variant(variantID)
	if err != nil {
		return false, err
	}
	return v.HasEnoughStock(sizeValue, stockToCheck)
}

func (u *ProductUpdater) SubtractStockForVariant(variantID uuid.UUID, sizeValue string, stockToSubtract int) error {
	v, err := u.variant(variantID)
	if err != nil {
		return err
	}
	return v.SubtractStock(sizeValue, stockToSubtract)
}

func (u *ProductUpdater) AddStockForVariant(variantID uuid.UUID, sizeValue string, stockToAdd int) error {
	v, err := u.variant(variantID)
	if err != nil {
		return err
	}
	return v.AddStock(sizeValue, stockToAdd)
}

func (u *ProductUpdater) CurrentStockForVariant(variantID uuid.UUID, sizeValue string) (int, error) {
	v, err := u.variant(variantID)
	if err != nil {
		return 0, err
	}
	return v.CurrentStock(sizeValue)
}

// StockAdjustments собирает чистые поправки; нулевые пропускаются,
// чтобы не писать лишние строки в хранилище.
func (u *ProductUpdater) StockAdjustments() []StockAdjustment {
	var adjustments []StockAdjustment
	for variantID, v := range u.variants {
		for sizeValue, s := range v.sizes {
			if s.Adjustment() == 0 {
				continue
			}
			adjustments = append(adjustments, StockAdjustment{
				ProductID:  u.productID,
				VariantID:  variantID,
				SizeValue:  sizeValue,
				Adjustment: s.Adjustment(),
			})
		}
	}
	return adjustments
}

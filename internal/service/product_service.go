package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"economat/internal/apierror"
	"economat/internal/dto"
	"economat/internal/model"
	"economat/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProductService defines the business logic contract for products.
type ProductService interface {
	Intake(ctx context.Context, req dto.IntakeRequest, img *dto.ImageUpload) ([]dto.ProductResponse, error)
	Replenish(ctx context.Context, id uuid.UUID, req dto.ReplenishRequest, img *dto.ImageUpload) (*dto.ProductResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest, img *dto.ImageUpload) (*dto.ProductResponse, error)
	Remove(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error)
	List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	ListByZone(ctx context.Context, zoneID uuid.UUID) ([]dto.ProductResponse, error)
	Movements(ctx context.Context, id uuid.UUID, page, limit int) (*dto.StockMovementListResponse, error)
}

// ProductDeps groups the collaborators of the product service.
type ProductDeps struct {
	Products repository.ProductRepository
	Zones    repository.ZoneRepository
	History  repository.StockMovementRepository
	Ledger   *StockLedger
	Vouchers VoucherService
	Images   ImageStore
	Cache    *ProductCache
	Alerts   AlertService
}

type productService struct {
	ProductDeps
	now func() time.Time
}

func NewProductService(deps ProductDeps) ProductService {
	return &productService{ProductDeps: deps, now: time.Now}
}

// ── Intake ────────────────────────────────────────────────────────────────────
// One delivery creates a batch of products in a single transaction. An
// attached image becomes one delivery voucher linked to every product.

func (s *productService) Intake(ctx context.Context, req dto.IntakeRequest, img *dto.ImageUpload) ([]dto.ProductResponse, error) {
	deliveryDate, err := parseDate("delivery_date", req.DeliveryDate)
	if err != nil {
		return nil, err
	}
	supplier := strings.TrimSpace(req.SupplierName)
	if supplier == "" {
		return nil, apierror.ValidationFields("invalid intake", map[string]string{"supplier_name": "required"})
	}
	if len(req.Items) == 0 {
		return nil, apierror.Validation("at least one item is required")
	}

	if req.VoucherType != "" && req.VoucherType != model.VoucherDelivery {
		return nil, apierror.ValidationFields("invalid intake", map[string]string{"voucher_type": "must be delivery"})
	}

	products := make([]*model.Product, 0, len(req.Items))
	fields := map[string]string{}
	for i, item := range req.Items {
		p, bad, err := s.buildIntakeProduct(ctx, i, item, supplier)
		if err != nil {
			return nil, err
		}
		for k, v := range bad {
			fields[k] = v
		}
		if len(bad) == 0 {
			products = append(products, p)
		}
	}
	if len(fields) > 0 {
		return nil, apierror.ValidationFields("invalid intake items", fields)
	}

	imageRef, err := storeImage(ctx, s.Images, img)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(products))
	txErr := runTx(ctx, s.Products.DB(), func(tx *gorm.DB) error {
		for _, p := range products {
			if err := s.Products.CreateTx(tx, p); err != nil {
				return persistence("create product", err)
			}
			ids = append(ids, p.ID)
		}

		var voucherRef *uuid.UUID
		if imageRef != "" {
			owner := products[0].ID
			v, err := s.Vouchers.AttachTx(tx, VoucherOwner{ProductID: &owner}, imageRef, req.VoucherType, deliveryDate, &supplier)
			if err != nil {
				return err
			}
			if err := s.Vouchers.LinkProductsTx(tx, v.ID, ids); err != nil {
				return err
			}
			voucherRef = &v.ID
		}

		for _, p := range products {
			if p.Quantity == 0 {
				continue
			}
			if err := s.Ledger.RecordIntakeTx(tx, p, voucherRef); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		discardImages(ctx, s.Images, imageRef)
		return nil, txErr
	}

	log.Info().Int("products", len(products)).Str("supplier", supplier).Bool("voucher", imageRef != "").Msg("intake recorded")

	created := make([]model.Product, 0, len(products))
	for _, p := range products {
		created = append(created, *p)
	}
	s.checkAlerts(ctx, created)

	out := make([]dto.ProductResponse, 0, len(ids))
	for _, id := range ids {
		resp, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return out, nil
}

func (s *productService) buildIntakeProduct(ctx context.Context, i int, item dto.IntakeItemRequest, supplier string) (*model.Product, map[string]string, error) {
	bad := map[string]string{}
	name := strings.TrimSpace(item.Name)
	if name == "" {
		bad[itemField(i, "name")] = "required"
	}
	if item.UnitPrice.IsNegative() {
		bad[itemField(i, "unit_price")] = "must not be negative"
	} else if !fitsCents(item.UnitPrice) {
		bad[itemField(i, "unit_price")] = "at most 2 decimal places"
	}
	if item.Quantity < 0 {
		bad[itemField(i, "quantity")] = "must not be negative"
	}
	unit := item.Unit
	if unit == "" {
		unit = model.UnitPiece
	}
	if !model.ValidUnit(unit) {
		bad[itemField(i, "unit")] = "must be one of kg, g, unit, liter, ml"
	}
	if item.SafetyThreshold != nil && *item.SafetyThreshold < 0 {
		bad[itemField(i, "safety_threshold")] = "must not be negative"
	}

	var zoneID uuid.UUID
	if id, err := uuid.Parse(strings.TrimSpace(item.ZoneID)); err != nil {
		bad[itemField(i, "zone_id")] = "must be a UUID"
	} else if ok, err := s.Zones.Exists(ctx, id); err != nil {
		return nil, nil, persistence("load zone", err)
	} else if !ok {
		bad[itemField(i, "zone_id")] = "unknown zone"
	} else {
		zoneID = id
	}

	var expiration time.Time
	if t, err := parseDate("expiration_date", item.ExpirationDate); err != nil {
		bad[itemField(i, "expiration_date")] = "expected YYYY-MM-DD"
	} else {
		expiration = t
	}

	price := item.UnitPrice.Round(2)
	amount := price.Mul(decimal.NewFromInt(int64(item.Quantity)))
	if item.Amount != nil && (!fitsCents(*item.Amount) || !item.Amount.Equal(amount)) {
		bad[itemField(i, "amount")] = fmt.Sprintf("must equal unit_price * quantity (%s)", amount.StringFixed(2))
	}
	if len(bad) > 0 {
		return nil, bad, nil
	}

	return &model.Product{
		Name:            name,
		UnitPrice:       price,
		Quantity:        item.Quantity,
		Amount:          amount,
		Unit:            unit,
		SafetyThreshold: item.SafetyThreshold,
		ZoneID:          &zoneID,
		ExpirationDate:  &expiration,
		Suppliers:       datatypes.JSONSlice[string]{supplier},
		PartNumber:      item.PartNumber,
	}, nil, nil
}

// ── Replenish ─────────────────────────────────────────────────────────────────

func (s *productService) Replenish(ctx context.Context, id uuid.UUID, req dto.ReplenishRequest, img *dto.ImageUpload) (*dto.ProductResponse, error) {
	if req.Quantity <= 0 {
		return nil, apierror.ValidationFields("invalid quantity", map[string]string{"quantity": "must be a positive integer"})
	}
	expiration, err := parseOptionalDate("expiration_date", req.ExpirationDate)
	if err != nil {
		return nil, err
	}
	voucherDate, err := parseOptionalDate("voucher_date", req.VoucherDate)
	if err != nil {
		return nil, err
	}
	if _, err := s.Products.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("product", id)
		}
		return nil, persistence("load product", err)
	}

	imageRef, err := storeImage(ctx, s.Images, img)
	if err != nil {
		return nil, err
	}

	var after *model.Product
	txErr := runTx(ctx, s.Products.DB(), func(tx *gorm.DB) error {
		var voucherRef *uuid.UUID
		if imageRef != "" {
			date := s.now()
			if voucherDate != nil {
				date = *voucherDate
			}
			v, err := s.Vouchers.AttachTx(tx, VoucherOwner{ProductID: &id}, imageRef, model.VoucherDelivery, date, req.SupplierName)
			if err != nil {
				return err
			}
			if err := s.Vouchers.LinkProductsTx(tx, v.ID, []uuid.UUID{id}); err != nil {
				return err
			}
			voucherRef = &v.ID
		}

		p, err := s.Ledger.CreditTx(tx, id, req.Quantity, model.MovementReplenish, voucherRef)
		if err != nil {
			return err
		}
		after = p

		meta := map[string]interface{}{}
		if expiration != nil {
			meta["expiration_date"] = *expiration
		}
		if req.PartNumber != nil {
			meta["part_number"] = *req.PartNumber
		}
		if err := s.Products.UpdateMetadataTx(tx, id, meta); err != nil {
			return persistence("update product", err)
		}
		if req.SupplierName != nil && strings.TrimSpace(*req.SupplierName) != "" {
			if err := s.Products.AddSupplierTx(tx, id, strings.TrimSpace(*req.SupplierName)); err != nil {
				return persistence("add supplier", err)
			}
		}
		return nil
	})
	if txErr != nil {
		discardImages(ctx, s.Images, imageRef)
		return nil, txErr
	}

	log.Info().Str("product_id", id.String()).Int("added", req.Quantity).Int("quantity", after.Quantity).Msg("product replenished")
	s.Cache.Invalidate(ctx, id)
	return s.load(ctx, id)
}

// ── Update ────────────────────────────────────────────────────────────────────
// Metadata only; quantity moves through Replenish and sorties. A new image is
// appended to the voucher list unless ReplaceVouchers is set.

func (s *productService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest, img *dto.ImageUpload) (*dto.ProductResponse, error) {
	meta, err := s.metadataFields(ctx, req)
	if err != nil {
		return nil, err
	}
	voucherDate, err := parseOptionalDate("voucher_date", req.VoucherDate)
	if err != nil {
		return nil, err
	}
	if _, err := s.Products.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("product", id)
		}
		return nil, persistence("load product", err)
	}

	imageRef, err := storeImage(ctx, s.Images, img)
	if err != nil {
		return nil, err
	}

	var dropped []string
	txErr := runTx(ctx, s.Products.DB(), func(tx *gorm.DB) error {
		if err := s.Products.UpdateMetadataTx(tx, id, meta); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierror.NotFound("product", id)
			}
			return persistence("update product", err)
		}
		if imageRef == "" {
			return nil
		}
		if req.ReplaceVouchers {
			refs, err := s.Vouchers.DetachProductTx(tx, id)
			if err != nil {
				return err
			}
			dropped = refs
		}
		date := s.now()
		if voucherDate != nil {
			date = *voucherDate
		}
		v, err := s.Vouchers.AttachTx(tx, VoucherOwner{ProductID: &id}, imageRef, model.VoucherDelivery, date, req.SupplierName)
		if err != nil {
			return err
		}
		return s.Vouchers.LinkProductsTx(tx, v.ID, []uuid.UUID{id})
	})
	if txErr != nil {
		discardImages(ctx, s.Images, imageRef)
		return nil, txErr
	}
	discardImages(ctx, s.Images, dropped...)
	s.Cache.Invalidate(ctx, id)

	resp, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := meta["safety_threshold"]; ok {
		if p, err := s.Products.FindByID(ctx, id); err == nil {
			s.checkAlerts(ctx, []model.Product{*p})
		}
	}
	return resp, nil
}

func (s *productService) metadataFields(ctx context.Context, req dto.UpdateProductRequest) (map[string]interface{}, error) {
	meta := map[string]interface{}{}
	bad := map[string]string{}

	if req.Name != nil {
		if name := strings.TrimSpace(*req.Name); name == "" {
			bad["name"] = "must not be empty"
		} else {
			meta["name"] = name
		}
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			bad["unit_price"] = "must not be negative"
		} else if !fitsCents(*req.UnitPrice) {
			bad["unit_price"] = "at most 2 decimal places"
		} else {
			meta["unit_price"] = req.UnitPrice.Round(2)
		}
	}
	if req.Unit != nil {
		if !model.ValidUnit(*req.Unit) {
			bad["unit"] = "must be one of kg, g, unit, liter, ml"
		} else {
			meta["unit"] = *req.Unit
		}
	}
	if req.SafetyThreshold != nil {
		if *req.SafetyThreshold < 0 {
			bad["safety_threshold"] = "must not be negative"
		} else {
			meta["safety_threshold"] = *req.SafetyThreshold
		}
	}
	if req.ZoneID != nil {
		zoneID, err := uuid.Parse(*req.ZoneID)
		if err != nil {
			bad["zone_id"] = "must be a UUID"
		} else if ok, err := s.Zones.Exists(ctx, zoneID); err != nil {
			return nil, persistence("load zone", err)
		} else if !ok {
			bad["zone_id"] = "unknown zone"
		} else {
			meta["zone_id"] = zoneID
		}
	}
	if req.Suppliers != nil {
		suppliers := make([]string, 0, len(req.Suppliers))
		for _, sp := range req.Suppliers {
			if sp = strings.TrimSpace(sp); sp != "" {
				suppliers = append(suppliers, sp)
			}
		}
		meta["suppliers"] = datatypes.NewJSONSlice(suppliers)
	}
	if req.ExpirationDate != nil {
		t, err := parseDate("expiration_date", *req.ExpirationDate)
		if err != nil {
			bad["expiration_date"] = "expected YYYY-MM-DD"
		} else {
			meta["expiration_date"] = t
		}
	}
	if req.PartNumber != nil {
		meta["part_number"] = *req.PartNumber
	}

	if len(bad) > 0 {
		return nil, apierror.ValidationFields("invalid product update", bad)
	}
	return meta, nil
}

// ── Remove ────────────────────────────────────────────────────────────────────
// Refused while sortie line items still reference the product. Vouchers go
// with the product unless another product of the same delivery still uses them.

func (s *productService) Remove(ctx context.Context, id uuid.UUID) error {
	var dropped []string
	txErr := runTx(ctx, s.Products.DB(), func(tx *gorm.DB) error {
		if _, err := s.Products.FindByIDTx(tx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierror.NotFound("product", id)
			}
			return persistence("load product", err)
		}
		refs, err := s.Products.CountSortieRefsTx(tx, id)
		if err != nil {
			return persistence("count sortie references", err)
		}
		if refs > 0 {
			return apierror.Conflict(fmt.Sprintf("product %s is still referenced by %d sortie line item(s)", id, refs))
		}
		dropped, err = s.Vouchers.DetachProductTx(tx, id)
		if err != nil {
			return err
		}
		if err := s.Products.DeleteTx(tx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierror.NotFound("product", id)
			}
			return persistence("delete product", err)
		}
		return nil
	})
	if txErr != nil {
		return txErr
	}

	log.Info().Str("product_id", id.String()).Int("vouchers_deleted", len(dropped)).Msg("product removed")
	discardImages(ctx, s.Images, dropped...)
	s.Cache.Invalidate(ctx, id)
	return nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	if resp, ok := s.Cache.Get(ctx, id); ok {
		return resp, nil
	}
	resp, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Cache.Set(ctx, resp)
	return resp, nil
}

func (s *productService) load(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.Products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("product", id)
		}
		return nil, persistence("load product", err)
	}
	resp := toProductResponse(p)
	return &resp, nil
}

func (s *productService) List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	products, total, err := s.Products.List(ctx, filter)
	if err != nil {
		return nil, persistence("list products", err)
	}
	data := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		data = append(data, toProductResponse(&products[i]))
	}
	pages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return &dto.ProductListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: pages,
	}, nil
}

func (s *productService) ListByZone(ctx context.Context, zoneID uuid.UUID) ([]dto.ProductResponse, error) {
	ok, err := s.Zones.Exists(ctx, zoneID)
	if err != nil {
		return nil, persistence("load zone", err)
	}
	if !ok {
		return nil, apierror.NotFound("zone", zoneID)
	}
	products, err := s.Products.ListByZone(ctx, zoneID)
	if err != nil {
		return nil, persistence("list zone products", err)
	}
	out := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, toProductResponse(&products[i]))
	}
	return out, nil
}

func (s *productService) Movements(ctx context.Context, id uuid.UUID, page, limit int) (*dto.StockMovementListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	movements, total, err := s.History.List(ctx, repository.StockMovementFilter{ProductID: &id, Page: page, Limit: limit})
	if err != nil {
		return nil, persistence("list stock movements", err)
	}
	data := make([]dto.StockMovementResponse, 0, len(movements))
	for i := range movements {
		data = append(data, toMovementResponse(&movements[i]))
	}
	return &dto.StockMovementListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *productService) checkAlerts(ctx context.Context, products []model.Product) {
	if s.Alerts == nil {
		return
	}
	s.Alerts.CheckLowStock(ctx, products)
}

package service

import (
	"context"
	"errors"
	"time"

	"economat/internal/apierror"
	"economat/internal/dto"
	"economat/internal/model"
	"economat/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ImageStore persists voucher images and hands back a stable reference.
type ImageStore interface {
	Save(ctx context.Context, img dto.ImageUpload) (string, error)
	Delete(ctx context.Context, ref string) error
}

// VoucherOwner names the single record a voucher belongs to.
type VoucherOwner struct {
	ProductID *uuid.UUID
	SortieID  *uuid.UUID
}

// VoucherService manages bons. A product accumulates delivery bons across
// intakes and replenishments; a sortie points at one current withdrawal bon.
type VoucherService interface {
	Get(ctx context.Context, id uuid.UUID) (*dto.VoucherResponse, error)
	SearchByDate(ctx context.Context, date string) ([]dto.VoucherResponse, error)

	AttachTx(tx *gorm.DB, owner VoucherOwner, imageRef, voucherType string, date time.Time, supplier *string) (*model.Voucher, error)
	// ReplaceTx swaps the image and date of a voucher in place and returns the previous image reference.
	ReplaceTx(tx *gorm.DB, id uuid.UUID, imageRef string, date time.Time) (string, error)
	RedateTx(tx *gorm.DB, id uuid.UUID, date time.Time) error
	LinkProductsTx(tx *gorm.DB, voucherID uuid.UUID, productIDs []uuid.UUID) error
	// DetachProductTx removes every link of the product. Vouchers left without
	// a product are deleted; shared vouchers owned by the product move to
	// another linked product. It returns the image references to discard.
	DetachProductTx(tx *gorm.DB, productID uuid.UUID) ([]string, error)
	DeleteForSortieTx(tx *gorm.DB, sortieID uuid.UUID) ([]string, error)
}

type voucherService struct {
	repo repository.VoucherRepository
}

func NewVoucherService(repo repository.VoucherRepository) VoucherService {
	return &voucherService{repo: repo}
}

func (s *voucherService) Get(ctx context.Context, id uuid.UUID) (*dto.VoucherResponse, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("voucher", id)
		}
		return nil, persistence("load voucher", err)
	}
	resp := toVoucherResponse(v)
	return &resp, nil
}

func (s *voucherService) SearchByDate(ctx context.Context, date string) ([]dto.VoucherResponse, error) {
	day, err := parseDate("date", date)
	if err != nil {
		return nil, err
	}
	vouchers, err := s.repo.SearchByDate(ctx, day)
	if err != nil {
		return nil, persistence("search vouchers", err)
	}
	out := make([]dto.VoucherResponse, 0, len(vouchers))
	for i := range vouchers {
		out = append(out, toVoucherResponse(&vouchers[i]))
	}
	return out, nil
}

func (s *voucherService) AttachTx(tx *gorm.DB, owner VoucherOwner, imageRef, voucherType string, date time.Time, supplier *string) (*model.Voucher, error) {
	if (owner.ProductID == nil) == (owner.SortieID == nil) {
		return nil, apierror.Validation("a voucher belongs to exactly one product or sortie")
	}
	if imageRef == "" {
		return nil, apierror.Validation("voucher image reference is empty")
	}
	want := model.VoucherDelivery
	if owner.SortieID != nil {
		want = model.VoucherWithdrawal
	}
	if voucherType == "" {
		voucherType = want
	}
	if voucherType != want {
		return nil, apierror.ValidationFields("invalid voucher type", map[string]string{
			"voucher_type": "must be " + want,
		})
	}

	v := &model.Voucher{
		ImageRef:     imageRef,
		Type:         voucherType,
		VoucherDate:  date,
		ProductID:    owner.ProductID,
		SortieID:     owner.SortieID,
		SupplierName: supplier,
	}
	if err := s.repo.CreateTx(tx, v); err != nil {
		return nil, persistence("create voucher", err)
	}
	return v, nil
}

func (s *voucherService) ReplaceTx(tx *gorm.DB, id uuid.UUID, imageRef string, date time.Time) (string, error) {
	v, err := s.repo.FindByIDTx(tx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apierror.NotFound("voucher", id)
		}
		return "", persistence("load voucher", err)
	}
	old := v.ImageRef
	if err := s.repo.UpdateTx(tx, id, map[string]interface{}{
		"image_ref":    imageRef,
		"voucher_date": date,
	}); err != nil {
		return "", persistence("replace voucher", err)
	}
	return old, nil
}

func (s *voucherService) RedateTx(tx *gorm.DB, id uuid.UUID, date time.Time) error {
	if err := s.repo.UpdateTx(tx, id, map[string]interface{}{"voucher_date": date}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("voucher", id)
		}
		return persistence("redate voucher", err)
	}
	return nil
}

func (s *voucherService) LinkProductsTx(tx *gorm.DB, voucherID uuid.UUID, productIDs []uuid.UUID) error {
	if err := s.repo.LinkTx(tx, voucherID, productIDs); err != nil {
		return persistence("link voucher", err)
	}
	return nil
}

func (s *voucherService) DetachProductTx(tx *gorm.DB, productID uuid.UUID) ([]string, error) {
	vouchers, err := s.repo.ListByProductTx(tx, productID)
	if err != nil {
		return nil, persistence("list product vouchers", err)
	}
	if err := s.repo.UnlinkProductTx(tx, productID); err != nil {
		return nil, persistence("unlink product vouchers", err)
	}

	var orphans []uuid.UUID
	var refs []string
	for _, v := range vouchers {
		remaining, err := s.repo.LinkedProductIDsTx(tx, v.ID)
		if err != nil {
			return nil, persistence("list voucher links", err)
		}
		if len(remaining) == 0 {
			orphans = append(orphans, v.ID)
			refs = append(refs, v.ImageRef)
			continue
		}
		if v.ProductID != nil && *v.ProductID == productID {
			if err := s.repo.ReassignOwnerTx(tx, v.ID, remaining[0]); err != nil {
				return nil, persistence("reassign voucher", err)
			}
			log.Debug().
				Str("voucher_id", v.ID.String()).
				Str("new_owner", remaining[0].String()).
				Msg("shared voucher re-owned")
		}
	}
	if err := s.repo.DeleteTx(tx, orphans...); err != nil {
		return nil, persistence("delete vouchers", err)
	}
	return refs, nil
}

func (s *voucherService) DeleteForSortieTx(tx *gorm.DB, sortieID uuid.UUID) ([]string, error) {
	vouchers, err := s.repo.ListBySortieTx(tx, sortieID)
	if err != nil {
		return nil, persistence("list sortie vouchers", err)
	}
	ids := make([]uuid.UUID, 0, len(vouchers))
	refs := make([]string, 0, len(vouchers))
	for _, v := range vouchers {
		ids = append(ids, v.ID)
		refs = append(refs, v.ImageRef)
	}
	if err := s.repo.DeleteTx(tx, ids...); err != nil {
		return nil, persistence("delete sortie vouchers", err)
	}
	return refs, nil
}

// discardImages removes stored images after the records that pointed at them
// are gone. Failures only leave an unreferenced file behind.
func discardImages(ctx context.Context, store ImageStore, refs ...string) {
	if store == nil {
		return
	}
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := store.Delete(ctx, ref); err != nil {
			log.Warn().Err(err).Str("image_ref", ref).Msg("voucher image cleanup failed")
		}
	}
}

// storeImage persists an optional upload. No upload yields an empty reference.
func storeImage(ctx context.Context, store ImageStore, img *dto.ImageUpload) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", nil
	}
	if store == nil {
		return "", apierror.Validation("voucher images are not accepted: no image store configured")
	}
	ref, err := store.Save(ctx, *img)
	if err != nil {
		return "", persistence("store voucher image", err)
	}
	return ref, nil
}

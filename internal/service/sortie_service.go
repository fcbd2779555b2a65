package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"economat/internal/apierror"
	"economat/internal/dto"
	"economat/internal/model"
	"economat/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// SlipRenderer renders the printable withdrawal slip of a sortie.
type SlipRenderer interface {
	SortieSlip(s *model.Sortie) ([]byte, error)
}

type SortieService interface {
	Create(ctx context.Context, req dto.SortieRequest, img *dto.ImageUpload) (*dto.SortieResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.SortieRequest, img *dto.ImageUpload) (*dto.SortieResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*dto.SortieResponse, error)
	List(ctx context.Context, filter dto.SortieFilter) (*dto.SortieListResponse, error)
	Slip(ctx context.Context, id uuid.UUID) ([]byte, error)
}

// SortieDeps groups the collaborators of the sortie service.
type SortieDeps struct {
	Sorties  repository.SortieRepository
	Ledger   *StockLedger
	Vouchers VoucherService
	Images   ImageStore
	Cache    *ProductCache
	Alerts   AlertService
	Slips    SlipRenderer
}

type sortieService struct {
	SortieDeps
}

func NewSortieService(deps SortieDeps) SortieService {
	return &sortieService{SortieDeps: deps}
}

// sortieInput is a decoded sortie request.
type sortieInput struct {
	date   time.Time
	issuer string
	lines  []StockLine
}

func decodeSortie(req dto.SortieRequest) (*sortieInput, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	in := &sortieInput{date: date, lines: make([]StockLine, 0, len(req.Items))}
	if req.IssuerName != nil {
		in.issuer = strings.TrimSpace(*req.IssuerName)
	}
	for i, item := range req.Items {
		id, err := parseID(itemField(i, "product_id"), item.ProductID)
		if err != nil {
			return nil, err
		}
		in.lines = append(in.lines, StockLine{ProductID: id, Quantity: item.Quantity})
	}
	return in, nil
}

func linesOf(items []model.SortieItem) []StockLine {
	lines := make([]StockLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

// itemsFor builds the stored line items, snapshotting product names from the
// rows written by the debit.
func itemsFor(lines []StockLine, written []model.Product) []model.SortieItem {
	names := make(map[uuid.UUID]string, len(written))
	for _, p := range written {
		names[p.ID] = p.Name
	}
	items := make([]model.SortieItem, 0, len(lines))
	for i, l := range lines {
		items = append(items, model.SortieItem{
			Position:    i,
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			ProductName: names[l.ProductID],
		})
	}
	return items
}

func productIDs(groups ...[]StockLine) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, lines := range groups {
		for _, l := range lines {
			if !seen[l.ProductID] {
				seen[l.ProductID] = true
				ids = append(ids, l.ProductID)
			}
		}
	}
	return ids
}

// ── Create ────────────────────────────────────────────────────────────────────
// validate → debit → persist in one transaction. The sortie row is written
// only after every debit went through.

func (s *sortieService) Create(ctx context.Context, req dto.SortieRequest, img *dto.ImageUpload) (*dto.SortieResponse, error) {
	in, err := decodeSortie(req)
	if err != nil {
		return nil, err
	}
	imageRef, err := storeImage(ctx, s.Images, img)
	if err != nil {
		return nil, err
	}

	var id uuid.UUID
	var written []model.Product
	err = retryOnConflict(ctx, "create sortie", func() error {
		id = uuid.New()
		return runTx(ctx, s.Sorties.DB(), func(tx *gorm.DB) error {
			ref := id
			products, err := s.Ledger.ApplyDeltaTx(tx, in.lines, &ref)
			if err != nil {
				return err
			}
			sortie := &model.Sortie{
				ID:         id,
				Date:       in.date,
				IssuerName: in.issuer,
				Applied:    true,
				Items:      itemsFor(in.lines, products),
			}
			if err := s.Sorties.CreateTx(tx, sortie); err != nil {
				return persistence("create sortie", err)
			}
			if imageRef != "" {
				v, err := s.Vouchers.AttachTx(tx, VoucherOwner{SortieID: &ref}, imageRef, model.VoucherWithdrawal, in.date, nil)
				if err != nil {
					return err
				}
				if err := s.Sorties.UpdateTx(tx, id, map[string]interface{}{"voucher_id": v.ID}); err != nil {
					return persistence("attach sortie voucher", err)
				}
			}
			written = products
			return nil
		})
	})
	if err != nil {
		discardImages(ctx, s.Images, imageRef)
		return nil, err
	}

	log.Info().Str("sortie_id", id.String()).Int("items", len(in.lines)).Msg("sortie created")
	s.afterStockChange(ctx, productIDs(in.lines), written)
	return s.Get(ctx, id)
}

// ── Update ────────────────────────────────────────────────────────────────────
// The current effect is credited back and committed first, whatever the new
// items look like. The new items then go through the full create protocol.
// When that second step fails the sortie stays unapplied with its old items.

func (s *sortieService) Update(ctx context.Context, id uuid.UUID, req dto.SortieRequest, img *dto.ImageUpload) (*dto.SortieResponse, error) {
	in, err := decodeSortie(req)
	if err != nil {
		return nil, err
	}

	imageRef, err := storeImage(ctx, s.Images, img)
	if err != nil {
		return nil, err
	}

	var oldLines []StockLine
	err = runTx(ctx, s.Sorties.DB(), func(tx *gorm.DB) error {
		current, err := s.findForUpdate(tx, id)
		if err != nil {
			return err
		}
		oldLines = linesOf(current.Items)
		return s.revertTx(tx, current)
	})
	if err != nil {
		discardImages(ctx, s.Images, imageRef)
		return nil, err
	}
	s.Cache.Invalidate(ctx, productIDs(oldLines)...)

	var written []model.Product
	var dropped string
	err = retryOnConflict(ctx, "update sortie", func() error {
		dropped = ""
		return runTx(ctx, s.Sorties.DB(), func(tx *gorm.DB) error {
			current, err := s.findForUpdate(tx, id)
			if err != nil {
				return err
			}
			// Another edit may have re-applied the sortie since the first step.
			if err := s.revertTx(tx, current); err != nil {
				return err
			}

			ref := id
			products, err := s.Ledger.ApplyDeltaTx(tx, in.lines, &ref)
			if err != nil {
				return err
			}
			if err := s.Sorties.ReplaceItemsTx(tx, id, itemsFor(in.lines, products)); err != nil {
				return persistence("replace sortie items", err)
			}

			fields := map[string]interface{}{
				"date":        in.date,
				"issuer_name": in.issuer,
				"applied":     true,
			}
			switch {
			case imageRef != "" && (req.AppendVoucher || current.VoucherID == nil):
				v, err := s.Vouchers.AttachTx(tx, VoucherOwner{SortieID: &ref}, imageRef, model.VoucherWithdrawal, in.date, nil)
				if err != nil {
					return err
				}
				fields["voucher_id"] = v.ID
			case imageRef != "":
				old, err := s.Vouchers.ReplaceTx(tx, *current.VoucherID, imageRef, in.date)
				if err != nil {
					return err
				}
				dropped = old
			case current.VoucherID != nil && !current.Date.Equal(in.date):
				if err := s.Vouchers.RedateTx(tx, *current.VoucherID, in.date); err != nil {
					return err
				}
			}
			if err := s.Sorties.UpdateTx(tx, id, fields); err != nil {
				return persistence("update sortie", err)
			}
			written = products
			return nil
		})
	})
	if err != nil {
		discardImages(ctx, s.Images, imageRef)
		log.Warn().Err(err).Str("sortie_id", id.String()).Msg("sortie update failed after credit-back, left unapplied")
		return nil, err
	}

	discardImages(ctx, s.Images, dropped)
	log.Info().Str("sortie_id", id.String()).Int("items", len(in.lines)).Msg("sortie updated")
	s.afterStockChange(ctx, productIDs(oldLines, in.lines), written)
	return s.Get(ctx, id)
}

// ── Delete ────────────────────────────────────────────────────────────────────
// Credit-back runs before the rows are removed, inside the same transaction.

func (s *sortieService) Delete(ctx context.Context, id uuid.UUID) error {
	var lines []StockLine
	var dropped []string
	err := runTx(ctx, s.Sorties.DB(), func(tx *gorm.DB) error {
		current, err := s.findForUpdate(tx, id)
		if err != nil {
			return err
		}
		lines = linesOf(current.Items)
		if err := s.revertTx(tx, current); err != nil {
			return err
		}
		dropped, err = s.Vouchers.DeleteForSortieTx(tx, id)
		if err != nil {
			return err
		}
		if err := s.Sorties.DeleteTx(tx, id); err != nil {
			return persistence("delete sortie", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("sortie_id", id.String()).Int("items", len(lines)).Msg("sortie deleted")
	discardImages(ctx, s.Images, dropped...)
	s.Cache.Invalidate(ctx, productIDs(lines)...)
	return nil
}

// revertTx credits the sortie's items back if they are currently applied.
// The applied flag flips in the same transaction, so a sortie is never
// credited twice.
func (s *sortieService) revertTx(tx *gorm.DB, current *model.Sortie) error {
	flipped, err := s.Sorties.MarkRevertedTx(tx, current.ID)
	if err != nil {
		return persistence("mark sortie reverted", err)
	}
	if !flipped {
		return nil
	}
	ref := current.ID
	if _, err := s.Ledger.RevertDeltaTx(tx, linesOf(current.Items), &ref); err != nil {
		return err
	}
	return nil
}

func (s *sortieService) findForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Sortie, error) {
	current, err := s.Sorties.FindForUpdateTx(tx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("sortie", id)
		}
		return nil, persistence("load sortie", err)
	}
	return current, nil
}

func (s *sortieService) afterStockChange(ctx context.Context, ids []uuid.UUID, written []model.Product) {
	s.Cache.Invalidate(ctx, ids...)
	if s.Alerts != nil {
		s.Alerts.CheckLowStock(ctx, written)
	}
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *sortieService) Get(ctx context.Context, id uuid.UUID) (*dto.SortieResponse, error) {
	sortie, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toSortieResponse(sortie)
	return &resp, nil
}

func (s *sortieService) load(ctx context.Context, id uuid.UUID) (*model.Sortie, error) {
	sortie, err := s.Sorties.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("sortie", id)
		}
		return nil, persistence("load sortie", err)
	}
	return sortie, nil
}

func (s *sortieService) List(ctx context.Context, filter dto.SortieFilter) (*dto.SortieListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	if filter.From != "" {
		if _, err := parseDate("from", filter.From); err != nil {
			return nil, err
		}
	}
	if filter.To != "" {
		if _, err := parseDate("to", filter.To); err != nil {
			return nil, err
		}
	}
	sorties, total, err := s.Sorties.List(ctx, filter)
	if err != nil {
		return nil, persistence("list sorties", err)
	}
	data := make([]dto.SortieResponse, 0, len(sorties))
	for i := range sorties {
		data = append(data, toSortieResponse(&sorties[i]))
	}
	return &dto.SortieListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *sortieService) Slip(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if s.Slips == nil {
		return nil, apierror.Conflict("withdrawal slips are not available")
	}
	sortie, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	pdf, err := s.Slips.SortieSlip(sortie)
	if err != nil {
		return nil, persistence("render sortie slip", err)
	}
	return pdf, nil
}

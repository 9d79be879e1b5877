package documents

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/finance"
	"github.com/meridian-erp/meridian-erp/internal/identity"
)

// RepositoryPort defines the data access used by the draft service.
type RepositoryPort interface {
	Get(ctx context.Context, kind finance.DocKind, id int64) (Document, error)
	Create(ctx context.Context, input CreateInput) (Document, error)
	UpdateDraft(ctx context.Context, kind finance.DocKind, id int64, input UpdateInput) error
	Delete(ctx context.Context, kind finance.DocKind, id int64) error
	List(ctx context.Context, kind finance.DocKind, filter ListFilter) ([]Document, error)
}

// Service enforces the draft lifecycle rules: a document is created in
// draft by its owning module and may only be mutated or deleted by its
// creator while still in draft.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService constructs the document service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create inserts a draft owned by the actor, in the actor's branch.
func (s *Service) Create(ctx context.Context, input CreateInput, actor identity.Actor) (Document, error) {
	if !input.Kind.Valid() {
		return Document{}, &finance.ValidationError{Msg: fmt.Sprintf("unknown document kind %q", input.Kind)}
	}
	if input.Total.Sign() <= 0 {
		return Document{}, &finance.ValidationError{Msg: "total must be positive"}
	}
	if input.CounterpartyID == 0 {
		return Document{}, &finance.ValidationError{Msg: "counterparty required"}
	}
	if input.Kind.Settleable() {
		if !input.Method.Valid() {
			return Document{}, &finance.ValidationError{Msg: "settlement method required"}
		}
		if input.TaxAmount.Sign() != 0 {
			return Document{}, &finance.ValidationError{Msg: "receipts and payments carry no tax amount"}
		}
		input.Subtotal = input.Total
	} else {
		input.Method = ""
		if !input.Subtotal.Add(input.TaxAmount).Equal(input.Total) {
			return Document{}, &finance.ValidationError{Msg: "total must equal subtotal plus tax"}
		}
	}
	if input.Number == "" {
		input.Number = generateNumber(input.Kind, s.now())
	}
	input.BranchID = actor.BranchID
	input.CreatedBy = actor.ID
	return s.repo.Create(ctx, input)
}

// Update mutates a draft. Only the creator may change a draft, and only
// while approval status is still DRAFT.
func (s *Service) Update(ctx context.Context, kind finance.DocKind, id int64, input UpdateInput, actor identity.Actor) (Document, error) {
	doc, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return Document{}, err
	}
	if err := s.guardDraftMutation(doc, actor, "update"); err != nil {
		return Document{}, err
	}
	input, err = mergeDraftPatch(doc, input)
	if err != nil {
		return Document{}, err
	}
	if err := s.repo.UpdateDraft(ctx, kind, id, input); err != nil {
		return Document{}, err
	}
	return s.repo.Get(ctx, kind, id)
}

// mergeDraftPatch applies the patch onto the stored draft and re-checks the
// same totals shape Create enforces, so a partial update cannot leave
// subtotal + tax != total behind.
func mergeDraftPatch(doc Document, input UpdateInput) (UpdateInput, error) {
	counterparty := doc.CounterpartyID
	if input.CounterpartyID != nil {
		counterparty = *input.CounterpartyID
	}
	subtotal, tax, total := doc.Subtotal, doc.TaxAmount, doc.Total
	if input.Subtotal != nil {
		subtotal = *input.Subtotal
	}
	if input.TaxAmount != nil {
		tax = *input.TaxAmount
	}
	if input.Total != nil {
		total = *input.Total
	}
	if total.Sign() <= 0 {
		return UpdateInput{}, &finance.ValidationError{Msg: "total must be positive"}
	}
	if counterparty == 0 {
		return UpdateInput{}, &finance.ValidationError{Msg: "counterparty required"}
	}
	if doc.Kind.Settleable() {
		if input.Method != nil && !input.Method.Valid() {
			return UpdateInput{}, &finance.ValidationError{Msg: "settlement method required"}
		}
		if tax.Sign() != 0 {
			return UpdateInput{}, &finance.ValidationError{Msg: "receipts and payments carry no tax amount"}
		}
		input.Subtotal = &total
	} else {
		input.Method = nil
		if !subtotal.Add(tax).Equal(total) {
			return UpdateInput{}, &finance.ValidationError{Msg: "total must equal subtotal plus tax"}
		}
	}
	return input, nil
}

// Delete removes a draft. Permitted only while draft and only by the creator.
func (s *Service) Delete(ctx context.Context, kind finance.DocKind, id int64, actor identity.Actor) error {
	doc, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := s.guardDraftMutation(doc, actor, "delete"); err != nil {
		return err
	}
	return s.repo.Delete(ctx, kind, id)
}

// Get returns a document visible to the actor's branch.
func (s *Service) Get(ctx context.Context, kind finance.DocKind, id int64, actor identity.Actor) (Document, error) {
	doc, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return Document{}, err
	}
	if doc.BranchID != actor.BranchID {
		return Document{}, &finance.CrossBranchError{Kind: kind, ID: id, DocBranch: doc.BranchID, ActorBranch: actor.BranchID}
	}
	return doc, nil
}

// List returns the actor's branch documents of the given kind.
func (s *Service) List(ctx context.Context, kind finance.DocKind, filter ListFilter, actor identity.Actor) ([]Document, error) {
	if !kind.Valid() {
		return nil, &finance.ValidationError{Msg: fmt.Sprintf("unknown document kind %q", kind)}
	}
	filter.BranchID = actor.BranchID
	return s.repo.List(ctx, kind, filter)
}

func (s *Service) guardDraftMutation(doc Document, actor identity.Actor, op string) error {
	if doc.BranchID != actor.BranchID {
		return &finance.CrossBranchError{Kind: doc.Kind, ID: doc.ID, DocBranch: doc.BranchID, ActorBranch: actor.BranchID}
	}
	if doc.ApprovalStatus != finance.ApprovalDraft {
		return &finance.InvalidStateError{Kind: doc.Kind, ID: doc.ID, Approval: doc.ApprovalStatus, Status: doc.Status, Operation: op}
	}
	if doc.CreatedBy != actor.ID {
		return &finance.ForbiddenError{Kind: doc.Kind, ID: doc.ID, ActorID: actor.ID, Reason: "only the creator may " + op + " a draft"}
	}
	return nil
}

var kindPrefixes = map[finance.DocKind]string{
	finance.KindSalesOrder:    "SO",
	finance.KindPurchaseOrder: "PO",
	finance.KindARInvoice:     "ARI",
	finance.KindAPInvoice:     "API",
	finance.KindARReceipt:     "ARR",
	finance.KindAPPayment:     "APP",
}

func generateNumber(kind finance.DocKind, at time.Time) string {
	return fmt.Sprintf("%s-%d", kindPrefixes[kind], at.UnixNano())
}

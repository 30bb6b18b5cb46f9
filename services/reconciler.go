package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/upgradeforless/UpgradeForLess/models"
	"github.com/upgradeforless/UpgradeForLess/repository"
	"github.com/upgradeforless/UpgradeForLess/utils"
	"gorm.io/datatypes"
)

// Outcome is what happened to one webhook delivery
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeRejected  Outcome = "rejected"
	OutcomeDuplicate Outcome = "duplicate"
)

// Statuses each event kind may be applied on top of. Each list contains the
// status the event produces, so re-delivery rewrites the same values.
var allowedFrom = map[models.EventKind][]models.PaymentStatus{
	models.EventPaymentCaptured: {models.StatusCreated, models.StatusAuthorized, models.StatusFailed, models.StatusCaptured},
	models.EventPaymentFailed:   {models.StatusCreated, models.StatusAuthorized, models.StatusFailed},
	// A refund implies capture, so it may land before the capture event does.
	models.EventRefundProcessed: {models.StatusCreated, models.StatusAuthorized, models.StatusCaptured, models.StatusRefundPending, models.StatusRefundFailed, models.StatusRefunded},
	models.EventRefundFailed:    {models.StatusCaptured, models.StatusRefundPending, models.StatusRefundFailed},
}

// Reconciler applies normalized events to payment records
type Reconciler struct {
	store    PaymentStore
	notifier Notifier
	now      func() time.Time
}

// NewReconciler creates a new Reconciler
func NewReconciler(store PaymentStore, notifier Notifier) *Reconciler {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Reconciler{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// Reconcile applies exactly one update for event. Unknown kinds, missing records
// and regressions are acknowledged outcomes, not errors; only store faults fail.
func (r *Reconciler) Reconcile(ctx context.Context, event *models.NormalizedEvent) (Outcome, error) {
	if event == nil || !event.Kind.Known() {
		if event != nil {
			utils.LogInfo("Ignoring %s event %q", event.Provider, event.ProviderEvent)
		}
		return OutcomeIgnored, nil
	}
	if event.PaymentID == "" {
		return "", utils.MalformedRequestError("Event carries no payment id", nil)
	}

	key := models.RecordKey{PaymentID: event.PaymentID, OrderID: event.OrderID}
	update := r.buildUpdate(event)
	from := allowedFrom[event.Kind]

	applied, err := r.store.ApplyUpdate(ctx, key, from, update)
	if err != nil {
		utils.LogError("Failed to apply %s for payment %s: %v", event.Kind, event.PaymentID, err)
		return "", utils.PersistenceError("Failed to update payment record", err)
	}
	if applied {
		utils.LogInfo("Applied %s for payment %s (order %s)", event.Kind, event.PaymentID, event.OrderID)
		return OutcomeProcessed, nil
	}

	record, err := r.store.FindByKey(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		utils.LogWarn("No payment record for %s event, payment %s order %s; acknowledging", event.Kind, event.PaymentID, event.OrderID)
		return OutcomeNotFound, nil
	}
	if err != nil {
		utils.LogError("Failed to load payment %s after skipped update: %v", event.PaymentID, err)
		return "", utils.PersistenceError("Failed to load payment record", err)
	}

	reason := fmt.Sprintf("%s cannot follow status %s", event.Kind, record.Status)
	if containsStatus(from, record.Status) {
		reason = fmt.Sprintf("%s at %s is older than the last applied event at %s",
			event.Kind, event.OccurredAt.Format(time.RFC3339), formatTime(record.LastEventAt))
	}
	if superseded(record, event, update) {
		utils.LogWarn("Rejected superseded %s for payment %s: %s", event.Kind, event.PaymentID, reason)
		return OutcomeRejected, nil
	}
	utils.LogWarn("Rejected anomalous event for payment %s: %s", event.PaymentID, reason)
	r.notifier.Notify(
		fmt.Sprintf("Payment event anomaly: %s", event.PaymentID),
		fmt.Sprintf("Provider: %s\nEvent: %s\nPayment: %s\nOrder: %s\nReason: %s\n",
			event.Provider, event.ProviderEvent, event.PaymentID, event.OrderID, reason),
	)
	return OutcomeRejected, nil
}

func (r *Reconciler) buildUpdate(event *models.NormalizedEvent) models.PaymentUpdate {
	update := models.PaymentUpdate{
		UserID:    event.UserID,
		EventAt:   event.OccurredAt,
		UpdatedAt: r.now().UTC(),
	}
	if len(event.RawEntity) > 0 {
		update.Metadata = datatypes.JSON(event.RawEntity)
	}

	switch event.Kind {
	case models.EventPaymentCaptured:
		status := models.StatusCaptured
		if reported := models.PaymentStatus(event.Status); reported == models.StatusAuthorized || reported == models.StatusCaptured {
			status = reported
		}
		update.Status = &status
		if event.Method != "" {
			update.PaymentMethod = strPtr(event.Method)
		}

	case models.EventPaymentFailed:
		status := models.StatusFailed
		update.Status = &status
		update.ErrorCode = strPtr(event.ErrorCode)
		update.ErrorDescription = strPtr(event.ErrorDescription)

	case models.EventRefundProcessed:
		status := models.StatusRefunded
		refundStatus := event.RefundStatus
		if refundStatus == "" {
			refundStatus = "processed"
		}
		amount := event.Amount
		update.Status = &status
		update.RefundID = strPtr(event.RefundID)
		update.RefundAmount = &amount
		update.RefundStatus = &refundStatus
		if refundedAt := event.OccurredAt; !refundedAt.IsZero() {
			update.RefundedAt = &refundedAt
		} else {
			// untimed redeliveries keep the first arrival time
			arrived := update.UpdatedAt
			update.RefundedAtDefault = &arrived
		}

	case models.EventRefundFailed:
		update.Promote = &models.StatusPromotion{From: models.StatusRefundPending, To: models.StatusRefundFailed}
		update.RefundStatus = strPtr("failed")
		update.ErrorCode = strPtr(event.ErrorCode)
		update.ErrorDescription = strPtr(event.ErrorDescription)
	}

	return update
}

// superseded reports whether the record already reflects event or something
// newer than it, as with an ordinary late redelivery. Those are not alerted.
func superseded(record *models.PaymentRecord, event *models.NormalizedEvent, update models.PaymentUpdate) bool {
	target := update.Status
	if update.Promote != nil {
		target = &update.Promote.To
	}
	if target != nil && *target == record.Status {
		return true
	}
	return !event.OccurredAt.IsZero() && record.LastEventAt != nil && !event.OccurredAt.After(*record.LastEventAt)
}

func containsStatus(list []models.PaymentStatus, s models.PaymentStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format(time.RFC3339)
}

func strPtr(s string) *string {
	return &s
}

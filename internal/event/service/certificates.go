package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"volunteerhub/internal/event/models"
	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
)

// IssueCertificates flips the event's certificates flag and marks every
// completed registration certificate-eligible in one transaction.
//
// The flag flip is a compare-and-set in the store, so of any number of
// concurrent callers exactly one succeeds and the rest get already_issued.
func (s *Service) IssueCertificates(ctx context.Context, organizer id.UserID, eventID id.EventID) (issuance *models.CertificateIssuance, err error) {
	ctx, span := s.startSpan(ctx, "certificates.Issue", attribute.String("event_id", eventID.String()))
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveTx("issue_certificates", time.Now())

	err = s.tx.RunInTx(ctx, eventID, func(ctx context.Context, store Store) error {
		event, err := loadOwnedEvent(ctx, store, eventID, organizer, true)
		if err != nil {
			return err
		}
		if err := event.CanIssueCertificates(); err != nil {
			return err
		}

		now := s.now()
		flipped, err := store.MarkCertificatesIssued(ctx, eventID, now)
		if err != nil {
			return storeErr(err, "event")
		}
		if !flipped {
			return dErrors.New(dErrors.CodeAlreadyIssued, "certificates already issued")
		}
		eligible, err := store.MarkCertificateEligible(ctx, eventID, now)
		if err != nil {
			return storeErr(err, "registrations")
		}
		issuance = &models.CertificateIssuance{EventID: eventID, EligibleCount: eligible, IssuedAt: now}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "event")
	}

	s.metrics.IncrementCertificatesIssued()
	s.logAudit(ctx, auditCertificatesIssued,
		"event_id", eventID.String(),
		"organizer_id", organizer.String(),
		"eligible_count", issuance.EligibleCount)
	return issuance, nil
}

package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/gosimple/slug"
	invoicedomain "github.com/smallbiznis/ledgercraft/internal/invoice/domain"
	"github.com/smallbiznis/ledgercraft/internal/storage"
	"go.uber.org/zap"
)

const defaultPresignExpiry = 15 * time.Minute

func (s *Service) RenderPDF(ctx context.Context, id string) (invoicedomain.Document, error) {
	if s.renderer == nil {
		return invoicedomain.Document{}, invoicedomain.ErrRendererDisabled
	}

	inv, err := s.GetByID(ctx, id)
	if err != nil {
		return invoicedomain.Document{}, err
	}
	totals, err := inv.RecomputeTotals()
	if err != nil {
		return invoicedomain.Document{}, err
	}
	customer, err := s.loadCustomer(ctx, s.db, inv.OrgID, inv.CustomerID)
	if err != nil {
		return invoicedomain.Document{}, err
	}

	body, err := s.renderer.RenderInvoice(ctx, invoicedomain.RenderData{
		Invoice:         inv,
		Totals:          totals,
		CustomerName:    customer.Name,
		CustomerEmail:   customer.Email,
		CustomerAddress: customer.Address,
		CustomerGST:     customer.GSTNumber,
	})
	if err != nil {
		return invoicedomain.Document{}, fmt.Errorf("render invoice %s: %w", inv.InvoiceNumber, err)
	}

	return invoicedomain.Document{
		FileName:    slug.Make(inv.InvoiceNumber) + ".pdf",
		ContentType: "application/pdf",
		Body:        body,
	}, nil
}

// PublishPDF uploads the rendered invoice and returns a time-limited link.
func (s *Service) PublishPDF(ctx context.Context, id string) (invoicedomain.PublishedDocument, error) {
	if s.storage == nil {
		return invoicedomain.PublishedDocument{}, invoicedomain.ErrStorageDisabled
	}

	doc, err := s.RenderPDF(ctx, id)
	if err != nil {
		return invoicedomain.PublishedDocument{}, err
	}
	inv, err := s.GetByID(ctx, id)
	if err != nil {
		return invoicedomain.PublishedDocument{}, err
	}

	key := fmt.Sprintf("invoices/%s/%s", inv.OrgID.String(), doc.FileName)
	if _, err := s.storage.Upload(ctx, storage.UploadInput{
		Key:         key,
		ContentType: doc.ContentType,
		Body:        bytes.NewReader(doc.Body),
	}); err != nil {
		return invoicedomain.PublishedDocument{}, err
	}

	expiry := defaultPresignExpiry
	if seconds := s.cfg.Storage.PresignExpirySeconds; seconds > 0 {
		expiry = time.Duration(seconds) * time.Second
	}
	url, err := s.storage.GetPresignedURL(ctx, key, expiry)
	if err != nil {
		return invoicedomain.PublishedDocument{}, err
	}

	s.log.Info("invoice pdf published",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("key", key),
	)
	return invoicedomain.PublishedDocument{
		Key:       key,
		URL:       url,
		ExpiresAt: s.clock.Now().Add(expiry),
	}, nil
}

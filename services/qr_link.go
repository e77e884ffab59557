package services

import (
	"errors"
	"net/url"
	"strings"

	"github.com/yeremiapane/cafe-app/models"
)

// QRLinker produces the URL encoded in an order's tracking QR code. Image
// rendering is left to the client.
type QRLinker interface {
	Link(order *models.Order) (string, error)
}

type TrackingLinker struct {
	BaseURL string
}

func (l TrackingLinker) Link(order *models.Order) (string, error) {
	base := strings.TrimRight(l.BaseURL, "/")
	if base == "" {
		return "", errors.New("public base url is not configured")
	}
	u := base + "/track/" + url.PathEscape(order.OrderID)
	if order.OrderNumber != "" {
		u += "?code=" + url.QueryEscape(order.OrderNumber)
	}
	return u, nil
}

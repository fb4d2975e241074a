// Package sd holds the sales and distribution document model.
package sd

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sapflow/backend/internal/domain/sap"
)

// Defaults applied when optional sales area fields are not provided
const (
	DefaultOrderType           = "OR"
	DefaultSalesOrg            = "1000"
	DefaultDistributionChannel = "10"
	DefaultDivision            = "00"
	DefaultUnit                = "EA"
)

// SalesOrderItem is one line of a sales order
type SalesOrderItem struct {
	Material     string          `json:"material"`
	Quantity     decimal.Decimal `json:"quantity"`
	Plant        string          `json:"plant"`
	Unit         string          `json:"unit"`
	Price        decimal.Decimal `json:"price"`
	Batch        string          `json:"batch"`
	DeliveryDate string          `json:"delivery_date"`
}

// SalesOrder is the validated sales order document
type SalesOrder struct {
	Customer            string           `json:"customer"`
	SalesOrg            string           `json:"sales_org"`
	DistributionChannel string           `json:"distribution_channel"`
	Division            string           `json:"division"`
	OrderType           string           `json:"order_type"`
	CustomerPO          string           `json:"customer_po"`
	RequestedDate       string           `json:"requested_date"`
	Items               []SalesOrderItem `json:"items"`
}

// ApplyDefaults fills optional sales area fields
func (s *SalesOrder) ApplyDefaults() {
	if s.OrderType == "" {
		s.OrderType = DefaultOrderType
	}
	if s.SalesOrg == "" {
		s.SalesOrg = DefaultSalesOrg
	}
	if s.DistributionChannel == "" {
		s.DistributionChannel = DefaultDistributionChannel
	}
	if s.Division == "" {
		s.Division = DefaultDivision
	}
	for idx := range s.Items {
		if s.Items[idx].Unit == "" {
			s.Items[idx].Unit = DefaultUnit
		}
	}
}

// Validate returns the list of field errors for the order and its lines
func (s SalesOrder) Validate() []string {
	var errs []string

	if s.Customer == "" {
		errs = append(errs, "Missing required field: customer")
	}
	if s.SalesOrg == "" {
		errs = append(errs, "Missing required field: sales_org")
	}
	if s.OrderType == "" {
		errs = append(errs, "Missing required field: order_type")
	}
	if len(s.Items) == 0 {
		errs = append(errs, "At least one item is required")
	}

	for idx, item := range s.Items {
		if item.Material == "" {
			errs = append(errs, fmt.Sprintf("Item %d: Missing material", idx+1))
		}
		if item.Quantity.LessThanOrEqual(decimal.Zero) {
			errs = append(errs, fmt.Sprintf("Item %d: Invalid quantity", idx+1))
		}
	}

	if s.RequestedDate != "" {
		if _, err := sap.FormatDate(s.RequestedDate); err != nil {
			errs = append(errs, "Invalid requested_date")
		}
	}

	return errs
}

// NaturalKey identifies an order for duplicate detection: one order per
// customer and customer PO reference.
func (s SalesOrder) NaturalKey() string {
	return fmt.Sprintf("SD-SO:%s:%s", sap.PadAccount(s.Customer), s.CustomerPO)
}

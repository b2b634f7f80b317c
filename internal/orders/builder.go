// Package orders turns extracted listing lines into ERP sales orders, one per
// source order group. A failing group never stops the rest of the batch.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/xelth-com/watibridge/internal/erp"
	"github.com/xelth-com/watibridge/internal/extractor"
	"github.com/xelth-com/watibridge/internal/locations"
	"github.com/xelth-com/watibridge/internal/models"
)

var (
	// ErrPartialMapping rejects a group in which at least one location code has no warehouse
	ErrPartialMapping = errors.New("partial mapping failure")
	// ErrNoValidItems is returned when every item of a group is unknown to the ERP
	ErrNoValidItems = errors.New("no valid items")
)

// DefaultCurrency is used when the company has no default currency
const DefaultCurrency = "MYR"

const orderType = "Sales"

// Status of a group after a build
type Status string

const (
	StatusCreated   Status = "created"
	StatusValidated Status = "validated"
	StatusRejected  Status = "rejected"
	StatusFailed    Status = "failed"
)

// MappingError lists the location codes of a group that did not resolve
type MappingError struct {
	SONumber string
	Codes    []string
}

func (e *MappingError) Error() string {
	return strings.Join(locations.Resolution{Missing: e.Codes}.MissingMessages(), "; ")
}

func (e *MappingError) Unwrap() error { return ErrPartialMapping }

// Group is the set of lines belonging to one source sales order
type Group struct {
	SONumber string
	Customer string
	Lines    []extractor.OrderLine
}

// GroupResult is the outcome of one group
type GroupResult struct {
	SONumber       string               `json:"soNumber"`
	Customer       string               `json:"customer"`
	Status         Status               `json:"status"`
	OrderName      string               `json:"orderName,omitempty"`
	ProductionPlan string               `json:"productionPlan,omitempty"`
	DeliveryDate   string               `json:"deliveryDate,omitempty"`
	Lines          []erp.SalesOrderItem `json:"lines,omitempty"`
	SkippedItems   []string             `json:"skippedItems,omitempty"`
	Warnings       []string             `json:"warnings,omitempty"`
	Error          string               `json:"error,omitempty"`
	Err            error                `json:"-"`
}

// OK reports whether the group produced (or would produce, in test mode) an order
func (r GroupResult) OK() bool {
	return r.Status == StatusCreated || r.Status == StatusValidated
}

// Options are the per-run switches taken from the settings record
type Options struct {
	Company               string
	TestMode              bool
	AutoSubmit            bool
	CreateProductionPlans bool
}

// OptionsFromSettings copies the relevant flags; company falls back to fallbackCompany
func OptionsFromSettings(s *models.WatiSettings, fallbackCompany string) Options {
	company := s.DefaultCompany
	if company == "" {
		company = fallbackCompany
	}
	return Options{
		Company:               company,
		TestMode:              s.TestMode,
		AutoSubmit:            s.AutoSubmitSalesOrders,
		CreateProductionPlans: s.CreateProductionPlans,
	}
}

// GroupLines groups lines by (SO number, customer) in first-seen order
func GroupLines(lines []extractor.OrderLine) []Group {
	var groups []Group
	index := make(map[[2]string]int)
	for _, l := range lines {
		key := [2]string{l.SONumber, l.Customer}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{SONumber: l.SONumber, Customer: l.Customer})
		}
		groups[i].Lines = append(groups[i].Lines, l)
	}
	return groups
}

// Builder creates sales orders through an ERP backend
type Builder struct {
	mapper  *locations.Mapper
	backend erp.Backend
	now     func() time.Time
}

// NewBuilder creates an order builder
func NewBuilder(mapper *locations.Mapper, backend erp.Backend) *Builder {
	return &Builder{mapper: mapper, backend: backend, now: time.Now}
}

// Build processes every group independently and returns one result per group
func (b *Builder) Build(ctx context.Context, groups []Group, opts Options) []GroupResult {
	currency := ""
	results := make([]GroupResult, 0, len(groups))
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			results = append(results, failed(g, StatusFailed, err))
			continue
		}

		req, res, err := b.prepare(ctx, g, opts)
		if err != nil {
			status := StatusFailed
			if errors.Is(err, ErrPartialMapping) || errors.Is(err, ErrNoValidItems) {
				status = StatusRejected
			}
			r := failed(g, status, err)
			r.SkippedItems = res.SkippedItems
			log.Printf("❌ Orders: %s %s: %v", g.SONumber, status, err)
			results = append(results, r)
			continue
		}

		if currency == "" {
			currency = b.currency(ctx, opts.Company)
		}
		req.Currency = currency
		if err := req.Validate(); err != nil {
			r := failed(g, StatusFailed, err)
			r.SkippedItems = res.SkippedItems
			results = append(results, r)
			continue
		}

		if opts.TestMode {
			res.Status = StatusValidated
			log.Printf("🧪 Orders: %s validated (%d lines, test mode)", g.SONumber, len(req.Items))
			results = append(results, res)
			continue
		}

		results = append(results, b.commit(ctx, req, res, opts))
	}
	return results
}

// prepare resolves warehouses and drops unknown items. No ERP writes happen here.
func (b *Builder) prepare(ctx context.Context, g Group, opts Options) (erp.SalesOrderRequest, GroupResult, error) {
	res := GroupResult{SONumber: g.SONumber, Customer: g.Customer}

	codes := make([]string, 0, len(g.Lines))
	for _, l := range g.Lines {
		codes = append(codes, l.LocationCode)
	}
	resolution, err := b.mapper.ResolveAll(ctx, codes)
	if err != nil {
		return erp.SalesOrderRequest{}, res, err
	}
	if len(resolution.Missing) > 0 {
		return erp.SalesOrderRequest{}, res, &MappingError{SONumber: g.SONumber, Codes: resolution.Missing}
	}

	deliveryDate := earliestDate(g.Lines)
	if deliveryDate == "" {
		deliveryDate = b.now().Format("2006-01-02")
	}

	known := make(map[string]bool)
	var items []erp.SalesOrderItem
	for _, l := range g.Lines {
		exists, seen := known[l.ItemCode]
		if !seen {
			exists, err = b.backend.ItemExists(ctx, l.ItemCode)
			if err != nil {
				return erp.SalesOrderRequest{}, res, fmt.Errorf("item %s: %w", l.ItemCode, err)
			}
			known[l.ItemCode] = exists
			if !exists {
				res.SkippedItems = append(res.SkippedItems, l.ItemCode)
			}
		}
		if !exists {
			continue
		}
		warehouse, _ := resolution.Warehouse(l.LocationCode)
		lineDate := l.DeliveryDate
		if !isISODate(lineDate) {
			lineDate = deliveryDate
		}
		items = append(items, erp.SalesOrderItem{
			ItemCode:     l.ItemCode,
			Qty:          l.Qty,
			DeliveryDate: lineDate,
			Warehouse:    warehouse,
		})
	}
	if len(items) == 0 {
		return erp.SalesOrderRequest{}, res, fmt.Errorf("%s: unknown items %s: %w",
			g.SONumber, strings.Join(res.SkippedItems, ", "), ErrNoValidItems)
	}

	res.Lines = items
	res.DeliveryDate = deliveryDate
	req := erp.SalesOrderRequest{
		Company:      opts.Company,
		Customer:     g.Customer,
		PONumber:     g.SONumber,
		PODate:       b.now().Format("2006-01-02"),
		DeliveryDate: deliveryDate,
		OrderType:    orderType,
		Items:        items,
	}
	return req, res, nil
}

func (b *Builder) commit(ctx context.Context, req erp.SalesOrderRequest, res GroupResult, opts Options) GroupResult {
	customer, err := b.backend.EnsureCustomer(ctx, req.Customer)
	if err != nil {
		r := withError(res, StatusFailed, fmt.Errorf("customer %s: %w", req.Customer, err))
		log.Printf("❌ Orders: %s customer: %v", req.PONumber, err)
		return r
	}
	req.Customer = customer

	name, err := b.backend.CreateSalesOrder(ctx, req)
	if err != nil {
		log.Printf("❌ Orders: %s create failed: %v", req.PONumber, err)
		return withError(res, StatusFailed, err)
	}
	res.Status = StatusCreated
	res.OrderName = name
	log.Printf("✅ Orders: %s -> %s (%d lines)", req.PONumber, name, len(req.Items))

	if opts.AutoSubmit {
		if err := b.backend.SubmitSalesOrder(ctx, name); err != nil {
			log.Printf("⚠️ Orders: submit %s failed: %v", name, err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("submit failed: %v", err))
		}
	}

	if opts.CreateProductionPlans {
		planner, ok := b.backend.(erp.ProductionPlanner)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s backend cannot create production plans", b.backend.Name()))
			return res
		}
		plan, err := planner.CreateProductionPlan(ctx, name)
		if err != nil {
			log.Printf("⚠️ Orders: production plan for %s failed: %v", name, err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("production plan failed: %v", err))
			return res
		}
		res.ProductionPlan = plan
	}
	return res
}

func (b *Builder) currency(ctx context.Context, company string) string {
	if company == "" {
		return DefaultCurrency
	}
	cur, err := b.backend.CompanyCurrency(ctx, company)
	if err != nil {
		log.Printf("⚠️ Orders: currency of %s: %v, using %s", company, err, DefaultCurrency)
		return DefaultCurrency
	}
	if cur == "" {
		return DefaultCurrency
	}
	return cur
}

func failed(g Group, status Status, err error) GroupResult {
	return withError(GroupResult{SONumber: g.SONumber, Customer: g.Customer}, status, err)
}

func withError(r GroupResult, status Status, err error) GroupResult {
	r.Status = status
	r.Err = err
	r.Error = err.Error()
	return r
}

func earliestDate(lines []extractor.OrderLine) string {
	earliest := ""
	for _, l := range lines {
		if !isISODate(l.DeliveryDate) {
			continue
		}
		if earliest == "" || l.DeliveryDate < earliest {
			earliest = l.DeliveryDate
		}
	}
	return earliest
}

func isISODate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// Created returns the ERP names of the created orders
func Created(results []GroupResult) []string {
	var names []string
	for _, r := range results {
		if r.Status == StatusCreated {
			names = append(names, r.OrderName)
		}
	}
	return names
}

// Summarize renders the results as plain text for the webhook log
func Summarize(results []GroupResult) string {
	var sb strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sb, "%s (%s): %s", r.SONumber, r.Customer, r.Status)
		if r.OrderName != "" {
			fmt.Fprintf(&sb, " %s", r.OrderName)
		}
		if r.Error != "" {
			fmt.Fprintf(&sb, " - %s", r.Error)
		}
		sb.WriteString("\n")
		for _, l := range r.Lines {
			fmt.Fprintf(&sb, "  %s x %g -> %s (%s)\n", l.ItemCode, l.Qty, l.Warehouse, l.DeliveryDate)
		}
		if len(r.SkippedItems) > 0 {
			fmt.Fprintf(&sb, "  skipped unknown items: %s\n", strings.Join(r.SkippedItems, ", "))
		}
		for _, w := range r.Warnings {
			fmt.Fprintf(&sb, "  warning: %s\n", w)
		}
	}
	return sb.String()
}

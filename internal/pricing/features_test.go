package pricing_test

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/cucumber/godog"
	"github.com/safar/farm-market/internal/models"
	"github.com/safar/farm-market/internal/pricing"
	"github.com/shopspring/decimal"
)

type pricingTestContext struct {
	zones []pricing.Zone
	items []models.LineItem
	quote pricing.Quote
	err   error
}

func (c *pricingTestContext) reset() {
	c.zones = nil
	c.items = nil
	c.quote = pricing.Quote{}
	c.err = nil
}

func (c *pricingTestContext) theDeliveryZoneWithFeeAndFreeDeliveryFrom(id string, fee, threshold string) error {
	c.zones = append(c.zones, pricing.Zone{
		ID:                    id,
		FlatFee:               decimal.RequireFromString(fee),
		FreeDeliveryThreshold: decimal.RequireFromString(threshold),
	})
	return nil
}

func (c *pricingTestContext) theCartContains(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		productID, err := strconv.ParseInt(row.Cells[0].Value, 10, 64)
		if err != nil {
			return err
		}
		farmID, err := strconv.ParseInt(row.Cells[1].Value, 10, 64)
		if err != nil {
			return err
		}
		price, err := decimal.NewFromString(row.Cells[2].Value)
		if err != nil {
			return err
		}
		qty, err := strconv.Atoi(row.Cells[3].Value)
		if err != nil {
			return err
		}
		c.items = append(c.items, models.LineItem{
			ProductID: productID,
			FarmID:    farmID,
			UnitPrice: price,
			Quantity:  qty,
		})
	}
	return nil
}

func (c *pricingTestContext) theCartIsPricedForZone(zoneID string) error {
	table, err := pricing.NewZoneTable(c.zones...)
	if err != nil {
		return err
	}
	c.quote, c.err = pricing.NewEngine(table).Price(c.items, zoneID)
	return nil
}

func (c *pricingTestContext) farmHasSubtotalAndDeliveryFee(farmID int64, subtotal, fee string) error {
	if c.err != nil {
		return c.err
	}
	g, ok := c.quote.ByFarm()[farmID]
	if !ok {
		return fmt.Errorf("farm %d not in quote", farmID)
	}
	if !g.Subtotal.Equal(decimal.RequireFromString(subtotal)) {
		return fmt.Errorf("farm %d: expected subtotal %s, got %s", farmID, subtotal, g.Subtotal)
	}
	if !g.DeliveryFee.Equal(decimal.RequireFromString(fee)) {
		return fmt.Errorf("farm %d: expected delivery fee %s, got %s", farmID, fee, g.DeliveryFee)
	}
	return nil
}

func (c *pricingTestContext) theGrandTotalIs(total string) error {
	if c.err != nil {
		return c.err
	}
	if !c.quote.GrandTotal.Equal(decimal.RequireFromString(total)) {
		return fmt.Errorf("expected grand total %s, got %s", total, c.quote.GrandTotal)
	}
	return nil
}

func (c *pricingTestContext) theAmountToFreeDeliveryIs(amount string) error {
	if c.err != nil {
		return c.err
	}
	if !c.quote.AmountToFreeDelivery.Equal(decimal.RequireFromString(amount)) {
		return fmt.Errorf("expected amount to free delivery %s, got %s", amount, c.quote.AmountToFreeDelivery)
	}
	return nil
}

func (c *pricingTestContext) pricingFailsWithAValidationError() error {
	if !pricing.IsValidationError(c.err) {
		return fmt.Errorf("expected validation error, got %v", c.err)
	}
	return nil
}

func InitializePricingScenario(ctx *godog.ScenarioContext) {
	tc := &pricingTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^the delivery zone "([^"]*)" with fee (\d+(?:\.\d+)?) and free delivery from (\d+(?:\.\d+)?)$`, tc.theDeliveryZoneWithFeeAndFreeDeliveryFrom)
	ctx.Step(`^the cart contains:$`, tc.theCartContains)

	ctx.Step(`^the cart is priced for zone "([^"]*)"$`, tc.theCartIsPricedForZone)

	ctx.Step(`^farm (\d+) has subtotal (\d+(?:\.\d+)?) and delivery fee (\d+(?:\.\d+)?)$`, tc.farmHasSubtotalAndDeliveryFee)
	ctx.Step(`^the grand total is (\d+(?:\.\d+)?)$`, tc.theGrandTotalIs)
	ctx.Step(`^the amount to free delivery is (\d+(?:\.\d+)?)$`, tc.theAmountToFreeDeliveryIs)
	ctx.Step(`^pricing fails with a validation error$`, tc.pricingFailsWithAValidationError)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializePricingScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/pricing.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

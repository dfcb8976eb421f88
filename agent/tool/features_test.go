package tool_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	catalogx "github.com/tanpawarit/Chative-Voice-Tools/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Voice-Tools/agent/contract"
	leadx "github.com/tanpawarit/Chative-Voice-Tools/agent/lead"
	orderx "github.com/tanpawarit/Chative-Voice-Tools/agent/order"
	recordx "github.com/tanpawarit/Chative-Voice-Tools/agent/record"
	statex "github.com/tanpawarit/Chative-Voice-Tools/agent/state"
	toolx "github.com/tanpawarit/Chative-Voice-Tools/agent/tool"
	tutorx "github.com/tanpawarit/Chative-Voice-Tools/agent/tutor"
)

type toolTestContext struct {
	dir     string
	session *statex.Session
	gateway *toolx.Gateway
	last    contractx.ToolResult
}

func (c *toolTestContext) reset() error {
	if c.dir != "" {
		_ = os.RemoveAll(c.dir)
	}
	dir, err := os.MkdirTemp("", "tool-features-*")
	if err != nil {
		return err
	}
	*c = toolTestContext{dir: dir}
	return nil
}

func (c *toolTestContext) aFreshSession(variant string) error {
	ctx := context.Background()
	backend, err := recordx.NewFileBackend(c.dir)
	if err != nil {
		return err
	}
	store, err := recordx.NewStore(backend)
	if err != nil {
		return err
	}
	orders, err := orderx.NewLedger(ctx, store)
	if err != nil {
		return err
	}
	leads, err := leadx.NewLedger(ctx, store)
	if err != nil {
		return err
	}
	registry, err := statex.NewRegistry(statex.Deps{
		Store:       store,
		Catalog:     catalogx.New(catalogx.DefaultItems()),
		Content:     catalogx.NewContent(catalogx.DefaultTopics()),
		Orders:      orders,
		Leads:       leads,
		StoreName:   "Jacferdi Studios",
		StrictSizes: true,
	})
	if err != nil {
		return err
	}

	c.session, err = registry.Open(ctx, contractx.Variant(variant))
	if err != nil {
		return err
	}
	_, c.gateway, err = toolx.BuildForSession(c.session)
	return err
}

func (c *toolTestContext) call(tool string, args map[string]any) error {
	res, err := c.gateway.Execute(context.Background(), contractx.ToolRequest{Tool: tool, Args: args})
	if err != nil {
		return err
	}
	c.last = res
	return nil
}

func (c *toolTestContext) iCall(tool string) error {
	return c.call(tool, nil)
}

func (c *toolTestContext) iCallWithFilters(tool, category string, maxPrice int) error {
	return c.call(tool, map[string]any{"filters": map[string]any{"category": category, "max_price": maxPrice}})
}

func (c *toolTestContext) iAdd(quantity int, productID, size string) error {
	return c.call(toolx.ToolAddToCart, map[string]any{"product_id": productID, "size": size, "quantity": quantity})
}

func (c *toolTestContext) iSelectTopic(topic string) error {
	return c.call(toolx.ToolSelectTopic, map[string]any{"topic_id": topic})
}

func (c *toolTestContext) iSetTheMode(mode string) error {
	return c.call(toolx.ToolSetLearningMode, map[string]any{"mode": mode})
}

func (c *toolTestContext) theCallSucceeds() error {
	if !c.last.OK {
		return fmt.Errorf("call %s failed: %s (%s)", c.last.Tool, c.last.Code, c.last.Error)
	}
	return nil
}

func (c *toolTestContext) theCallFailsWithCode(code string) error {
	if c.last.OK {
		return fmt.Errorf("call %s succeeded, want %s", c.last.Tool, code)
	}
	if string(c.last.Code) != code {
		return fmt.Errorf("code = %s, want %s", c.last.Code, code)
	}
	if c.last.Narration == "" {
		return fmt.Errorf("failed call has no narration")
	}
	return nil
}

func (c *toolTestContext) theProductsAre(ids string) error {
	list, ok := c.last.Result.(toolx.ProductList)
	if !ok {
		return fmt.Errorf("result is %T, want ProductList", c.last.Result)
	}
	got := make([]string, len(list.Products))
	for i, p := range list.Products {
		got[i] = p.ID
	}
	if strings.Join(got, ", ") != ids {
		return fmt.Errorf("products = %v, want %s", got, ids)
	}
	return nil
}

func (c *toolTestContext) theOrderIDIs(id string) error {
	receipt, ok := c.last.Result.(toolx.OrderReceipt)
	if !ok {
		return fmt.Errorf("result is %T, want OrderReceipt", c.last.Result)
	}
	if receipt.OrderID != id {
		return fmt.Errorf("order id = %s, want %s", receipt.OrderID, id)
	}
	return nil
}

func (c *toolTestContext) theOrderTotalIs(total int) error {
	receipt, ok := c.last.Result.(toolx.OrderReceipt)
	if !ok {
		return fmt.Errorf("result is %T, want OrderReceipt", c.last.Result)
	}
	if receipt.Total != total {
		return fmt.Errorf("total = %d, want %d", receipt.Total, total)
	}
	return nil
}

func (c *toolTestContext) theCartIsEmpty() error {
	if n := c.session.Cart.Len(); n != 0 {
		return fmt.Errorf("cart has %d lines", n)
	}
	return nil
}

func (c *toolTestContext) noOrdersExist() error {
	if _, ok := c.session.Orders.Latest(); ok {
		return fmt.Errorf("an order exists")
	}
	return nil
}

func (c *toolTestContext) theCurrentTopicIs(id string) error {
	if got := c.session.Tutor.Snapshot().TopicID; got != id {
		return fmt.Errorf("topic = %q, want %q", got, id)
	}
	return nil
}

func (c *toolTestContext) theCurrentModeIs(mode string) error {
	if got := c.session.Tutor.Snapshot().Mode; got != tutorx.Mode(mode) {
		return fmt.Errorf("mode = %q, want %q", got, mode)
	}
	return nil
}

func (c *toolTestContext) theAvailableTopicsAre(ids string) error {
	missing, ok := c.last.Result.(toolx.TopicMissing)
	if !ok {
		return fmt.Errorf("result is %T, want TopicMissing", c.last.Result)
	}
	if got := strings.Join(missing.Available, ", "); got != ids {
		return fmt.Errorf("available = %s, want %s", got, ids)
	}
	return nil
}

func (c *toolTestContext) theNarrationMentions(fragment string) error {
	if !strings.Contains(c.last.Narration, fragment) {
		return fmt.Errorf("narration %q does not mention %q", c.last.Narration, fragment)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &toolTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, tc.reset()
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		return ctx, os.RemoveAll(tc.dir)
	})

	// Given steps
	ctx.Step(`^a fresh "([^"]*)" session$`, tc.aFreshSession)

	// When steps
	ctx.Step(`^I call "([^"]*)"$`, tc.iCall)
	ctx.Step(`^I call "([^"]*)" with filters category "([^"]*)" and max price (\d+)$`, tc.iCallWithFilters)
	ctx.Step(`^I add (-?\d+) of "([^"]*)" in size "([^"]*)"$`, tc.iAdd)
	ctx.Step(`^I select topic "([^"]*)"$`, tc.iSelectTopic)
	ctx.Step(`^I set the mode to "([^"]*)"$`, tc.iSetTheMode)

	// Then steps
	ctx.Step(`^the call succeeds$`, tc.theCallSucceeds)
	ctx.Step(`^the call fails with code "([^"]*)"$`, tc.theCallFailsWithCode)
	ctx.Step(`^the products are "([^"]*)"$`, tc.theProductsAre)
	ctx.Step(`^the order id is "([^"]*)"$`, tc.theOrderIDIs)
	ctx.Step(`^the order total is (\d+)$`, tc.theOrderTotalIs)
	ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
	ctx.Step(`^no orders exist$`, tc.noOrdersExist)
	ctx.Step(`^the current topic is "([^"]*)"$`, tc.theCurrentTopicIs)
	ctx.Step(`^the current mode is "([^"]*)"$`, tc.theCurrentModeIs)
	ctx.Step(`^the available topics are "([^"]*)"$`, tc.theAvailableTopicsAre)
	ctx.Step(`^the narration mentions "([^"]*)"$`, tc.theNarrationMentions)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"testdata/features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	cartx "github.com/tanpawarit/Chative-Voice-Tools/agent/cart"
	catalogx "github.com/tanpawarit/Chative-Voice-Tools/agent/catalog"
	orderx "github.com/tanpawarit/Chative-Voice-Tools/agent/order"
	statex "github.com/tanpawarit/Chative-Voice-Tools/agent/state"
)

type listProductsArgs struct {
	Filters catalogx.Filter `mapstructure:"filters"`
}

type addToCartArgs struct {
	ProductID string `mapstructure:"product_id"`
	Size      string `mapstructure:"size"`
	Quantity  *int   `mapstructure:"quantity"`
}

type ProductList struct {
	Products []catalogx.Item `json:"products"`
	Count    int             `json:"count"`
}

type CartView struct {
	Items    []cartx.Line `json:"items"`
	Subtotal int          `json:"subtotal"`
	Currency string       `json:"currency"`
}

type OrderReceipt struct {
	OrderID   string       `json:"order_id"`
	Items     []cartx.Line `json:"items"`
	Units     int          `json:"units"`
	Total     int          `json:"total"`
	Currency  string       `json:"currency"`
	CreatedAt string       `json:"created_at"`
}

type LastOrder struct {
	Order *orderx.Order `json:"order"`
}

func shopDefinitions() []definition {
	return []definition{
		{
			name: ToolListProducts,
			desc: "Search the product catalog. Omit filters to list everything.",
			params: map[string]*schema.ParameterInfo{
				"filters": {
					Type: schema.Object,
					Desc: "Optional filters; every given field must match",
					SubParams: map[string]*schema.ParameterInfo{
						"category":  {Type: schema.String, Desc: "Category substring, e.g. hoodie, tshirt, jeans, shoes"},
						"name":      {Type: schema.String, Desc: "Product name substring"},
						"max_price": {Type: schema.Integer, Desc: "Maximum price in the store currency"},
						"color":     {Type: schema.String, Desc: "Exact color, e.g. black"},
					},
				},
			},
			run: listProducts,
		},
		{
			name: ToolAddToCart,
			desc: "Add a product to the cart once the user has chosen a size.",
			params: map[string]*schema.ParameterInfo{
				"product_id": {Type: schema.String, Desc: "Catalog product id, e.g. hoodie-001", Required: true},
				"size":       {Type: schema.String, Desc: "One of the product's sizes", Required: true},
				"quantity":   {Type: schema.Integer, Desc: "Number of units, defaults to 1"},
			},
			run: addToCart,
		},
		{
			name: ToolGetCart,
			desc: "Show what is currently in the cart.",
			run:  getCart,
		},
		{
			name: ToolCreateOrderFromCart,
			desc: "Place an order for everything in the cart. Confirm the items and total with the user first.",
			run:  createOrderFromCart,
		},
		{
			name: ToolGetLastOrder,
			desc: "Get the most recent order placed.",
			run:  getLastOrder,
		},
	}
}

func listProducts(_ context.Context, s *statex.Session, args map[string]any) (outcome, error) {
	var in listProductsArgs
	if err := decodeArgs(args, &in); err != nil {
		return outcome{}, err
	}

	items := s.Catalog.List(in.Filters)
	out := outcome{Result: ProductList{Products: items, Count: len(items)}}
	if len(items) == 0 {
		out.Narration = "I couldn't find anything matching that. We offer hoodies, t-shirts, jeans, and sneakers. Which category are you interested in?"
		return out, nil
	}

	names := make([]string, len(items))
	for i, it := range items {
		names[i] = fmt.Sprintf("the '%s' in %s for %d %s", it.Name, it.Color, it.Price, it.Currency)
	}
	out.Narration = fmt.Sprintf("We have %s. Which one would you like?", strings.Join(names, "; "))
	return out, nil
}

func addToCart(ctx context.Context, s *statex.Session, args map[string]any) (outcome, error) {
	var in addToCartArgs
	if err := decodeArgs(args, &in); err != nil {
		return outcome{}, err
	}
	qty := 1
	if in.Quantity != nil {
		qty = *in.Quantity
	}

	line, err := s.Cart.Add(ctx, in.ProductID, in.Size, qty)
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		Result:    line,
		Narration: fmt.Sprintf("Item '%s' (Size: %s) added to your cart. Would you like to buy anything else or checkout?", line.Name, line.Size),
	}, nil
}

func getCart(_ context.Context, s *statex.Session, _ map[string]any) (outcome, error) {
	lines := s.Cart.Snapshot()
	view := CartView{Items: lines, Subtotal: cartx.Total(lines), Currency: s.Orders.Currency()}
	if len(lines) == 0 {
		return outcome{Result: view, Narration: "Your cart is empty. What would you like to add?"}, nil
	}
	return outcome{
		Result:    view,
		Narration: fmt.Sprintf("You have %d items in your cart for a total of %d %s.", len(lines), view.Subtotal, view.Currency),
	}, nil
}

func createOrderFromCart(ctx context.Context, s *statex.Session, _ map[string]any) (outcome, error) {
	order, err := s.Orders.FinalizeFromCart(ctx, s.Cart)
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		Result: OrderReceipt{
			OrderID:   order.ID,
			Items:     order.Items,
			Units:     order.ItemCount(),
			Total:     order.Total,
			Currency:  order.Currency,
			CreatedAt: order.CreatedAt,
		},
		Narration: fmt.Sprintf("Your order %s for %d items has been placed. The total is %d %s. Thank you for shopping with %s!",
			order.ID, len(order.Items), order.Total, order.Currency, s.StoreName),
	}, nil
}

func getLastOrder(_ context.Context, s *statex.Session, _ map[string]any) (outcome, error) {
	order, ok := s.Orders.Latest()
	if !ok {
		return outcome{Result: LastOrder{}, Narration: "You haven't placed any orders yet."}, nil
	}
	return outcome{
		Result:    LastOrder{Order: &order},
		Narration: fmt.Sprintf("Your last order was %s, totaling %d %s.", order.ID, order.Total, order.Currency),
	}, nil
}

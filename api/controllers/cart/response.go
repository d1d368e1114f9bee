package cart

import (
	cartdto "github.com/peersenco/storefront-backend/api/controllers/cart/dto"
	cartsvc "github.com/peersenco/storefront-backend/internal/cart"
)

func newCartView(c cartsvc.Cart) cartdto.CartView {
	items := make([]cartdto.CartViewItem, 0, len(c.Items))
	for _, line := range c.Items {
		item := cartdto.CartViewItem{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Slug:      line.Product.Slug,
			Price:     cartsvc.FormatAmount(line.Product.Price),
			Image:     line.Product.Image,
			Category:  line.Product.Category,
			InStock:   line.Product.InStock,
			Quantity:  line.Quantity,
			LineTotal: cartsvc.FormatAmount(line.LineTotal()),
		}
		if line.Product.CompareAtPrice != nil {
			compareAt := cartsvc.FormatAmount(*line.Product.CompareAtPrice)
			item.CompareAtPrice = &compareAt
		}
		items = append(items, item)
	}

	return cartdto.CartView{
		Items:     items,
		Total:     cartsvc.FormatAmount(c.Total),
		ItemCount: c.ItemCount(),
	}
}

package harness

import (
	"strings"

	"github.com/roach88/filare/internal/bom"
	"github.com/roach88/filare/internal/model"
	"github.com/roach88/filare/internal/value"
)

// BOM returns the harness's own BOM, populating it on first use.
func (h *Harness) BOM() (*bom.BOM, error) {
	if h.bom == nil {
		b := bom.New()
		if err := h.PopulateBOM(b); err != nil {
			return nil, err
		}
		h.bom = b
	}
	return h.bom, nil
}

// PopulateBOM folds every part of the harness into target. Populating the
// same target again is a no-op.
func (h *Harness) PopulateBOM(target *bom.BOM) error {
	if h.populated[target] {
		return nil
	}
	items := h.BOMItems()
	for _, item := range items {
		if err := target.Fold(item, h.Name); err != nil {
			return err
		}
	}
	h.populated[target] = true
	h.logger.Debug("bom populated", "harness", h.Name, "items", len(items), "entries", target.Len())
	return nil
}

// BOMItems lists the harness's BOM contributions, scaled by QtyMultiplier:
// each connector and its additional components, each cable (or its wires,
// for bundles and per-wire part numbers) and its additional components,
// then the harness-level items.
func (h *Harness) BOMItems() []bom.Item {
	var items []bom.Item
	add := func(item bom.Item) {
		item.Qty = item.Qty.Scale(float64(h.QtyMultiplier))
		items = append(items, item)
	}

	for _, c := range h.Connectors() {
		add(bom.Item{
			Description: c.Describe(),
			Category:    category(model.CategoryConnector, c.IgnoreInBOM),
			Qty:         value.NumberAndUnit{Number: 1},
			Designators: visible(c.Designator),
			PartNumbers: c.PartNumbers,
		})
		for _, ac := range c.AdditionalComponents {
			add(additionalItem(ac, c.Designator))
		}
	}

	for _, c := range h.Cables() {
		if c.IsBundle() || c.PerWirePartNumbers {
			for _, w := range c.Wires {
				add(bom.Item{
					Description: c.DescribeWire(w),
					Category:    category(model.CategoryWire, c.IgnoreInBOM),
					Qty:         w.Length,
					Designators: visible(c.Designator),
					PartNumbers: w.PartNumbers,
				})
			}
		} else {
			add(bom.Item{
				Description: c.Describe(),
				Category:    category(model.CategoryCable, c.IgnoreInBOM),
				Qty:         c.Length,
				Designators: visible(c.Designator),
				PartNumbers: c.PartNumbers,
			})
		}
		for _, ac := range c.AdditionalComponents {
			add(additionalItem(ac, c.Designator))
		}
	}

	for _, ac := range h.AdditionalBOMItems {
		add(additionalItem(ac, ""))
	}
	return items
}

func additionalItem(ac *model.AdditionalComponent, parent string) bom.Item {
	designators := ac.Designators
	if len(designators) == 0 {
		designators = visible(parent)
	}
	return bom.Item{
		Description:   ac.Describe(),
		Category:      string(ac.Category),
		Qty:           ac.TotalQty(),
		Designators:   designators,
		PartNumbers:   ac.PartNumbers,
		QtyMultiplier: ac.MultiplierKey(),
	}
}

func category(c model.Category, ignore bool) string {
	if ignore {
		return string(model.CategoryIgnore)
	}
	return string(c)
}

// visible hides generated designators ("_X_1") from BOM listings.
func visible(designator string) []string {
	if designator == "" || strings.HasPrefix(designator, "_") {
		return nil
	}
	return []string{designator}
}

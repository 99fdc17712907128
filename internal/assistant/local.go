package assistant

import (
	"fmt"
	"strings"
	"unicode"

	"venomshop/backend/internal/domain"
)

const searchLimit = 5

var (
	laserWords    = []string{"laser", "ليزر", "خامة", "خامات", "material"}
	profitWords   = []string{"profit", "loss", "margin", "ربح", "مكسب", "خسارة"}
	revenueWords  = []string{"revenue", "sales", "income", "مبيعات", "دخل", "إيراد"}
	lowStockWords = []string{"low", "running out", "reorder", "قارب", "نفد", "خلص", "قليل"}
	stockWords    = []string{"stock", "inventory", "available", "مخزون", "متوفر", "بضاعة"}
	topWords      = []string{"top", "best", "popular"}
	helpWords     = []string{"help", "مساعدة"}
	greetWords    = []string{"hello", "سلام", "مرحبا", "أهلا"}
	stopWords     = map[string]struct{}{
		"the": {}, "and": {}, "for": {}, "how": {}, "much": {}, "many": {}, "what": {}, "when": {},
		"did": {}, "does": {}, "was": {}, "sold": {}, "buy": {}, "bought": {}, "show": {}, "find": {},
		"laser": {}, "material": {}, "materials": {}, "متى": {}, "امتى": {}, "تاريخ": {},
	}
)

// LocalResponder answers common questions from the snapshot without a model.
type LocalResponder struct {
	LowStockThreshold float64
}

func (r LocalResponder) Respond(question string, snap domain.AssistantSnapshot) string {
	q := strings.ToLower(strings.TrimSpace(question))
	laser := containsAny(q, laserWords)
	section := snap.Analytics.Shop
	items := snap.ShopProducts
	label := "Shop"
	if laser {
		section = snap.Analytics.Laser
		items = snap.LaserMaterials
		label = "Laser"
	}

	switch {
	case containsWord(q, lowStockWords):
		return r.lowStock(label, items)
	case containsAny(q, profitWords):
		return fmt.Sprintf("%s figures for the selected period:\nRevenue: %.2f\nCost of goods: %.2f\nWaste: %.2f\nProfit: %.2f\nSold under cost: %.2f",
			label, section.Revenue, section.COGS, section.WasteCost, section.Profit, section.Loss)
	case containsAny(q, revenueWords):
		return fmt.Sprintf("%s revenue for the selected period: %.2f across %d sales.", label, section.Revenue, section.SalesCount)
	case containsWord(q, topWords):
		return topSellers(label, section.TopSellers)
	case containsAny(q, stockWords):
		return stockList(label, items, r.threshold())
	case containsAny(q, helpWords):
		return "I can answer questions about revenue, profit and loss, stock levels, low stock, top sellers, and find items or transactions by name, customer or date."
	case containsAny(q, greetWords):
		return "Hello! Ask me about the shop or the laser materials."
	}

	terms := searchTerms(q)
	if len(terms) == 0 {
		return "I don't have enough data to answer that."
	}
	return search(terms, snap)
}

func (r LocalResponder) threshold() float64 {
	if r.LowStockThreshold <= 0 {
		return 10
	}
	return r.LowStockThreshold
}

func (r LocalResponder) lowStock(label string, items []domain.Item) string {
	var b strings.Builder
	for _, item := range items {
		if item.Stock < r.threshold() {
			fmt.Fprintf(&b, "- %s: %s left\n", item.DisplayName(), domain.FormatQuantity(item.Stock))
		}
	}
	if b.Len() == 0 {
		return fmt.Sprintf("All %s items are sufficiently stocked.", strings.ToLower(label))
	}
	return fmt.Sprintf("%s items running low:\n%s", label, strings.TrimRight(b.String(), "\n"))
}

func topSellers(label string, sellers []domain.TopSeller) string {
	if len(sellers) == 0 {
		return fmt.Sprintf("No %s sales in the selected period.", strings.ToLower(label))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s top sellers:", label)
	for i, seller := range sellers {
		fmt.Fprintf(&b, "\n%d. %s (%s)", i+1, seller.Name, domain.FormatQuantity(seller.NetQuantity))
	}
	return b.String()
}

func stockList(label string, items []domain.Item, threshold float64) string {
	if len(items) == 0 {
		return fmt.Sprintf("No %s items are registered.", strings.ToLower(label))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s stock (%d items):", label, len(items))
	for i, item := range items {
		if i == 10 {
			fmt.Fprintf(&b, "\n... and %d more", len(items)-10)
			break
		}
		marker := "ok"
		if item.Stock < threshold {
			marker = "low"
		}
		fmt.Fprintf(&b, "\n- %s: %s [%s]", item.DisplayName(), domain.FormatQuantity(item.Stock), marker)
	}
	return b.String()
}

func search(terms []string, snap domain.AssistantSnapshot) string {
	var b strings.Builder
	found := 0
	for _, item := range append(append([]domain.Item{}, snap.ShopProducts...), snap.LaserMaterials...) {
		if found == searchLimit {
			break
		}
		if matchesAll(item.Matches, terms) {
			sale := "n/a"
			if item.SalePrice != nil {
				sale = fmt.Sprintf("%.2f", *item.SalePrice)
			}
			fmt.Fprintf(&b, "\n- %s: stock %s, buy %.2f, sell %s", item.DisplayName(), domain.FormatQuantity(item.Stock), item.PurchasePrice, sale)
			found++
		}
	}
	shown := 0
	for _, entry := range snap.Transactions {
		if shown == searchLimit {
			break
		}
		if matchesAll(entry.Matches, terms) {
			fmt.Fprintf(&b, "\n- %s %s x%s = %.2f on %s", entry.Type, entry.DisplayName(), domain.FormatQuantity(entry.Quantity), entry.TotalAmount, entry.Date.Format("2006-01-02"))
			if entry.CustomerName != "" {
				fmt.Fprintf(&b, " (%s)", entry.CustomerName)
			}
			shown++
		}
	}
	if b.Len() == 0 {
		return fmt.Sprintf("Nothing found for: %s", strings.Join(terms, ", "))
	}
	return "Here is what I found:" + b.String()
}

func matchesAll(match func(string) bool, terms []string) bool {
	for _, term := range terms {
		if !match(term) {
			return false
		}
	}
	return true
}

func searchTerms(q string) []string {
	terms := make([]string, 0, 4)
	for _, word := range strings.Fields(q) {
		word = strings.Trim(word, "?!.,:;\"'")
		if len([]rune(word)) < 3 {
			continue
		}
		if _, skip := stopWords[word]; skip {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// containsWord matches words at a word start, so "low" finds "lower" but not "below".
// Entries holding a space match as phrases.
func containsWord(s string, words []string) bool {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if strings.Contains(w, " ") {
			if strings.Contains(s, w) {
				return true
			}
			continue
		}
		for _, field := range fields {
			if strings.HasPrefix(field, w) {
				return true
			}
		}
	}
	return false
}

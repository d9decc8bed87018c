package bot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/Billy-Davies-2/seal-tracker/internal/controller"
	"github.com/Billy-Davies-2/seal-tracker/internal/models"
	"github.com/Billy-Davies-2/seal-tracker/internal/table"
)

// DefaultPageSize keeps chat replies short
const DefaultPageSize = 10

const maxChangedLines = 20

const helpText = "Available commands:\n" +
	"/table - Show the current page\n" +
	"/tier <n|all> - Pick a seal tier\n" +
	"/cards <limited|rare|super_rare> - Pick the card edition\n" +
	"/sort <price|ratio> - Sort by price or price per point\n" +
	"/asc, /desc - Price sort direction\n" +
	"/changed - Toggle players whose tier changed\n" +
	"/search <name> - Filter by name, empty to clear\n" +
	"/next, /prev, /page <n> - Move between pages\n" +
	"/player <name> - Look a player up\n" +
	"/summary - Snapshot overview"

// Snapshots is what the bot reads from
type Snapshots interface {
	Current() *models.Dataset
	Summary() (models.Summary, error)
}

// Handler answers chat commands. Each chat keeps its own table view.
type Handler struct {
	data     Snapshots
	defaults models.ViewState

	mu    sync.Mutex
	chats map[int64]*controller.Controller
}

func NewHandler(data Snapshots, defaults models.ViewState) *Handler {
	if defaults.PageSize < 1 {
		defaults.PageSize = DefaultPageSize
	}
	return &Handler{
		data:     data,
		defaults: defaults,
		chats:    make(map[int64]*controller.Controller),
	}
}

func (h *Handler) HandleCommand(update tgbotapi.Update) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, "")
	command := strings.ToLower(update.Message.Command())
	args := strings.TrimSpace(update.Message.CommandArguments())
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if command == "start" || command == "help" {
		msg.Text = "Sorare seal points tracker.\n\n" + helpText
		return msg
	}

	ctl := h.controllerFor(update.Message.Chat.ID)
	if ctl == nil {
		msg.Text = "Seal data is still loading, try again shortly."
		return msg
	}

	switch command {
	case "table":
		msg.Text = FormatPage(ctl.Result())
	case "tier":
		h.handleTier(&msg, ctl, args)
	case "cards":
		h.handleCards(&msg, ctl, args)
	case "sort":
		h.handleSort(&msg, ctl, args)
	case "asc":
		result, _ := ctl.SetDirection(models.Ascending)
		msg.Text = FormatPage(result)
	case "desc":
		result, _ := ctl.SetDirection(models.Descending)
		msg.Text = FormatPage(result)
	case "changed":
		msg.Text = FormatPage(ctl.SetChangedOnly(!ctl.View().ChangedOnly))
	case "search":
		msg.Text = FormatPage(ctl.SetSearch(args))
	case "next":
		msg.Text = FormatPage(ctl.NextPage())
	case "prev":
		msg.Text = FormatPage(ctl.PrevPage())
	case "page":
		h.handlePage(&msg, ctl, args)
	case "player":
		h.handlePlayer(&msg, ctl.Dataset(), args)
	case "summary":
		h.handleSummary(&msg)
	default:
		msg.Text = "Unknown command. Use /help to see available commands."
	}

	return msg
}

// controllerFor returns the chat's controller, moved onto the newest
// snapshot. It is nil until the first snapshot loads.
func (h *Handler) controllerFor(chatID int64) *controller.Controller {
	ds := h.data.Current()
	if ds == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctl, ok := h.chats[chatID]
	if !ok {
		ctl = controller.New(ds, h.defaults)
		h.chats[chatID] = ctl
		return ctl
	}
	if ctl.Dataset() != ds {
		ctl.ReplaceDataset(ds)
	}
	return ctl
}

func (h *Handler) handleTier(msg *tgbotapi.MessageConfig, ctl *controller.Controller, args string) {
	if args == "" {
		msg.Text = "Please provide a tier. Usage: /tier <n|all>"
		return
	}
	sel, err := models.ParseTierSelection(args)
	if err != nil {
		msg.Text = fmt.Sprintf("Invalid tier: %v", err)
		return
	}
	msg.Text = FormatPage(ctl.SetTier(sel))
}

func (h *Handler) handleCards(msg *tgbotapi.MessageConfig, ctl *controller.Controller, args string) {
	ct := models.CardType(strings.ReplaceAll(strings.ToLower(args), " ", "_"))
	result, err := ctl.SetCardType(ct)
	if err != nil {
		msg.Text = "Please pick limited, rare or super\\_rare. Usage: /cards <edition>"
		return
	}
	msg.Text = FormatPage(result)
}

func (h *Handler) handleSort(msg *tgbotapi.MessageConfig, ctl *controller.Controller, args string) {
	result, err := ctl.SetSortMode(models.SortMode(strings.ToLower(args)))
	if err != nil {
		msg.Text = "Please pick price or ratio. Usage: /sort <price|ratio>"
		return
	}
	msg.Text = FormatPage(result)
}

func (h *Handler) handlePage(msg *tgbotapi.MessageConfig, ctl *controller.Controller, args string) {
	n, err := strconv.Atoi(args)
	if err != nil {
		msg.Text = "Please provide a page number. Usage: /page <n>"
		return
	}
	msg.Text = FormatPage(ctl.SetPage(n))
}

func (h *Handler) handlePlayer(msg *tgbotapi.MessageConfig, ds *models.Dataset, args string) {
	if args == "" {
		msg.Text = "Please provide a player name. Usage: /player <name>"
		return
	}
	rec, ok := FindPlayer(ds, args)
	if !ok {
		msg.Text = fmt.Sprintf("No player matching %q.", args)
		return
	}
	msg.Text = FormatPlayer(table.WithRatios(rec))
}

func (h *Handler) handleSummary(msg *tgbotapi.MessageConfig) {
	sum, err := h.data.Summary()
	if err != nil {
		msg.Text = fmt.Sprintf("Error fetching summary: %v", err)
		return
	}
	msg.Text = FormatSummary(sum)
}

// FindPlayer matches a name loosely: an exact case-insensitive match wins,
// then the closest fuzzy match, then the closest name by edit distance.
func FindPlayer(ds *models.Dataset, query string) (models.PlayerRecord, bool) {
	var records []models.PlayerRecord
	for _, tier := range ds.Tiers() {
		records = append(records, ds.TierGroups[tier]...)
	}
	names := make([]string, len(records))
	for i, rec := range records {
		names[i] = rec.Name
		if strings.EqualFold(rec.Name, query) || rec.Slug == query {
			return rec, true
		}
	}

	ranks := fuzzy.RankFindNormalizedFold(query, names)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return records[ranks[0].OriginalIndex], true
	}

	const threshold = 0.6
	best, bestScore := -1, 0.0
	for i, name := range names {
		distance := fuzzy.LevenshteinDistance(strings.ToLower(query), strings.ToLower(name))
		maxLen := float64(max(len(query), len(name)))
		if maxLen == 0 {
			continue
		}
		similarity := 1 - float64(distance)/maxLen
		if similarity > threshold && similarity > bestScore {
			best, bestScore = i, similarity
		}
	}
	if best < 0 {
		return models.PlayerRecord{}, false
	}
	return records[best], true
}

// FormatPage renders one table page as a chat message
func FormatPage(result models.ViewResult) string {
	vs := result.View
	var b strings.Builder

	fmt.Fprintf(&b, "*%s seal* | %s | %s", tierLabel(vs.Tier), vs.CardType.Label(), sortLabel(vs))
	if vs.ChangedOnly {
		b.WriteString(" | changed only")
	}
	if vs.Search != "" {
		fmt.Fprintf(&b, " | \"%s\"", escape(vs.Search))
	}
	b.WriteString("\n\n")

	if len(result.Items) == 0 {
		b.WriteString("No players match.")
		return b.String()
	}

	offset := (result.Page - 1) * result.PageSize
	for i, rec := range result.Items {
		fmt.Fprintf(&b, "%d. [%s](%s) %s", offset+i+1, escape(rec.Name), rec.URL(), tierText(rec))
		fmt.Fprintf(&b, " %s EUR, %s/pt\n",
			table.FormatPrice(rec.Price(vs.CardType)),
			table.FormatRatio(table.RatioOf(rec, vs.CardType)))
	}

	markers := make([]string, len(result.PageNumbers))
	for i, m := range result.PageNumbers {
		if !m.Ellipsis && m.Number == result.Page {
			markers[i] = "[" + m.String() + "]"
		} else {
			markers[i] = m.String()
		}
	}
	fmt.Fprintf(&b, "\nPage %d of %d (%d players): %s", result.Page, result.TotalPages, result.TotalCount, strings.Join(markers, " "))
	return b.String()
}

// FormatPlayer renders every edition's price and ratio for one player
func FormatPlayer(rec models.PlayerRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* %s\n", escape(rec.Name), tierText(rec))
	for _, ct := range models.CardTypes {
		fmt.Fprintf(&b, "%s: %s EUR, %s/pt\n", ct.Label(),
			table.FormatPrice(rec.Price(ct)), table.FormatRatio(table.RatioOf(rec, ct)))
	}
	b.WriteString(rec.URL())
	return b.String()
}

// FormatSummary renders the snapshot overview
func FormatSummary(sum models.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Seal snapshot*\n%d players, %d changed tier\n", sum.Total, sum.Changed)
	if !sum.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "Generated %s\n", sum.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	for _, tier := range sum.Tiers {
		fmt.Fprintf(&b, "%d seal: %d players\n", tier, sum.ActualCounts[tier])
	}
	if sum.DataQualityIssues > 0 {
		fmt.Fprintf(&b, "%d data quality issues\n", sum.DataQualityIssues)
	}
	if sum.Stale {
		b.WriteString("Data may be stale")
		if sum.LastError != "" {
			fmt.Fprintf(&b, ": %s", escape(sum.LastError))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// ChangedReport lists players whose tier moved in the snapshot
func ChangedReport(ds *models.Dataset) string {
	changed := ds.ChangedPlayers()
	if len(changed) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%d players changed seal tier*\n", len(changed))
	for i, rec := range changed {
		if i == maxChangedLines {
			fmt.Fprintf(&b, "...and %d more", len(changed)-maxChangedLines)
			break
		}
		fmt.Fprintf(&b, "[%s](%s) %s\n", escape(rec.Name), rec.URL(), tierText(rec))
	}
	return strings.TrimRight(b.String(), "\n")
}

func tierText(rec models.PlayerRecord) string {
	tier := table.Placeholder
	if rec.Tier != nil {
		tier = strconv.Itoa(*rec.Tier)
	}
	if prev := table.FormatPreviousTier(rec.Tier, rec.PreviousTier); prev != "" {
		return fmt.Sprintf("(%s, was %s)", tier, prev)
	}
	return "(" + tier + ")"
}

func tierLabel(sel models.TierSelection) string {
	if sel.All {
		return "All"
	}
	return strconv.Itoa(sel.Tier)
}

func sortLabel(vs models.ViewState) string {
	if vs.SortMode == models.SortByRatio {
		return "by price per point"
	}
	if vs.Direction == models.Descending {
		return "price high to low"
	}
	return "price low to high"
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

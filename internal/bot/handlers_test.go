package bot

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
)

type stubSnapshots struct {
	ds *models.Dataset
}

func (s *stubSnapshots) Current() *models.Dataset { return s.ds }

func (s *stubSnapshots) Summary() (models.Summary, error) {
	return models.NewSummary(s.ds), nil
}

func tier(n int) *int { return &n }

func player(name, slug string, seal, prev int, limited string) models.PlayerRecord {
	rec := models.PlayerRecord{
		Name:         name,
		Slug:         slug,
		Tier:         tier(seal),
		PreviousTier: tier(prev),
		Changed:      seal != prev,
		Prices:       map[models.CardType]decimal.NullDecimal{},
	}
	if limited != "" {
		rec.Prices[models.CardLimited] = decimal.NewNullDecimal(decimal.RequireFromString(limited))
	}
	return rec
}

func testDataset() *models.Dataset {
	group := make([]models.PlayerRecord, 0, 12)
	for i := 1; i <= 12; i++ {
		group = append(group, player("Player "+string(rune('A'+i-1)), "player-"+string(rune('a'+i-1)), 200, 200, decimal.NewFromInt(int64(i)).String()))
	}
	group = append(group, player("Lionel Messi", "lionel-andres-messi-cuccittini", 200, 50, "40"))
	return &models.Dataset{
		TierGroups: map[int][]models.PlayerRecord{
			200: group,
			50:  {player("Nico Williams", "nicholas-williams-arthuer", 50, 50, "2")},
		},
		SummaryCounts: map[int]int{200: 13, 50: 1},
	}
}

func command(chatID int64, text string) tgbotapi.Update {
	name := strings.SplitN(text, " ", 2)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func newTestHandler(ds *models.Dataset) (*Handler, *stubSnapshots) {
	data := &stubSnapshots{ds: ds}
	vs := models.DefaultViewState()
	vs.PageSize = DefaultPageSize
	return NewHandler(data, vs), data
}

func TestHandleCommandTable(t *testing.T) {
	h, _ := newTestHandler(testDataset())

	msg := h.HandleCommand(command(1, "/table"))
	if msg.ChatID != 1 || msg.ParseMode != tgbotapi.ModeMarkdown {
		t.Errorf("unexpected message config %+v", msg)
	}
	if !strings.Contains(msg.Text, "1. [Player A](https://sorare.com/football/players/player-a) (200) 1.00 EUR, 0.005/pt") {
		t.Errorf("missing first row:\n%s", msg.Text)
	}
	if !strings.Contains(msg.Text, "Page 1 of 2 (13 players): [1] 2") {
		t.Errorf("missing pager:\n%s", msg.Text)
	}
}

func TestHandleCommandPaging(t *testing.T) {
	h, _ := newTestHandler(testDataset())

	msg := h.HandleCommand(command(1, "/next"))
	if !strings.Contains(msg.Text, "11. [Player K]") || !strings.Contains(msg.Text, "Page 2 of 2") {
		t.Errorf("unexpected second page:\n%s", msg.Text)
	}
	if !strings.Contains(msg.Text, "[Lionel Messi](https://sorare.com/football/players/lionel-andres-messi-cuccittini) (200, was 50)") {
		t.Errorf("changed player should show the previous tier:\n%s", msg.Text)
	}

	msg = h.HandleCommand(command(1, "/next"))
	if !strings.Contains(msg.Text, "Page 2 of 2") {
		t.Errorf("next on the last page should stay put:\n%s", msg.Text)
	}

	msg = h.HandleCommand(command(1, "/page 1"))
	if !strings.Contains(msg.Text, "Page 1 of 2") {
		t.Errorf("expected page 1:\n%s", msg.Text)
	}

	msg = h.HandleCommand(command(1, "/page x"))
	if !strings.Contains(msg.Text, "Usage: /page") {
		t.Errorf("expected usage, got %s", msg.Text)
	}
}

func TestHandleCommandChatsAreIndependent(t *testing.T) {
	h, _ := newTestHandler(testDataset())

	h.HandleCommand(command(1, "/tier 50"))
	msg := h.HandleCommand(command(2, "/table"))
	if !strings.Contains(msg.Text, "*200 seal*") {
		t.Errorf("chat 2 should keep the default tier:\n%s", msg.Text)
	}
	msg = h.HandleCommand(command(1, "/table"))
	if !strings.Contains(msg.Text, "*50 seal*") || !strings.Contains(msg.Text, "Nico Williams") {
		t.Errorf("chat 1 should be on tier 50:\n%s", msg.Text)
	}
}

func TestHandleCommandFilters(t *testing.T) {
	h, _ := newTestHandler(testDataset())

	msg := h.HandleCommand(command(1, "/changed"))
	if !strings.Contains(msg.Text, "changed only") || !strings.Contains(msg.Text, "1. [Lionel Messi]") {
		t.Errorf("unexpected changed view:\n%s", msg.Text)
	}

	h.HandleCommand(command(1, "/changed"))
	msg = h.HandleCommand(command(1, "/search PLAYER b"))
	if !strings.Contains(msg.Text, "1. [Player B]") || !strings.Contains(msg.Text, "(1 players)") {
		t.Errorf("unexpected search result:\n%s", msg.Text)
	}

	msg = h.HandleCommand(command(1, "/desc"))
	if !strings.Contains(msg.Text, "price high to low") {
		t.Errorf("expected descending label:\n%s", msg.Text)
	}

	msg = h.HandleCommand(command(1, "/cards gold"))
	if !strings.Contains(msg.Text, "Usage: /cards") {
		t.Errorf("expected usage, got %s", msg.Text)
	}
	msg = h.HandleCommand(command(1, "/cards rare"))
	if !strings.Contains(msg.Text, "| Rare |") || !strings.Contains(msg.Text, "- EUR, -/pt") {
		t.Errorf("rare prices are missing and should show placeholders:\n%s", msg.Text)
	}

	msg = h.HandleCommand(command(1, "/sort name"))
	if !strings.Contains(msg.Text, "Usage: /sort") {
		t.Errorf("expected usage, got %s", msg.Text)
	}

	msg = h.HandleCommand(command(1, "/tier abc"))
	if !strings.Contains(msg.Text, "Invalid tier") {
		t.Errorf("expected invalid tier, got %s", msg.Text)
	}
}

func TestHandleCommandPlayer(t *testing.T) {
	h, _ := newTestHandler(testDataset())

	for _, query := range []string{"lionel messi", "messi", "Lionel Mesi"} {
		msg := h.HandleCommand(command(1, "/player "+query))
		if !strings.HasPrefix(msg.Text, "*Lionel Messi* (200, was 50)") {
			t.Errorf("%q: unexpected reply:\n%s", query, msg.Text)
		}
		if !strings.Contains(msg.Text, "Limited: 40.00 EUR, 0.200/pt") {
			t.Errorf("%q: missing limited line:\n%s", query, msg.Text)
		}
	}

	msg := h.HandleCommand(command(1, "/player zzzzzzzz"))
	if !strings.Contains(msg.Text, "No player matching") {
		t.Errorf("expected no match, got %s", msg.Text)
	}
}

func TestHandleCommandNotLoaded(t *testing.T) {
	h, data := newTestHandler(nil)

	msg := h.HandleCommand(command(1, "/table"))
	if !strings.Contains(msg.Text, "still loading") {
		t.Errorf("expected loading notice, got %s", msg.Text)
	}
	if msg := h.HandleCommand(command(1, "/help")); !strings.Contains(msg.Text, "/player <name>") {
		t.Errorf("help should work before data loads, got %s", msg.Text)
	}

	data.ds = testDataset()
	msg = h.HandleCommand(command(1, "/table"))
	if !strings.Contains(msg.Text, "Player A") {
		t.Errorf("expected table once loaded, got %s", msg.Text)
	}
}

func TestHandleCommandFollowsNewSnapshot(t *testing.T) {
	h, data := newTestHandler(testDataset())

	h.HandleCommand(command(1, "/page 2"))

	data.ds = &models.Dataset{
		TierGroups: map[int][]models.PlayerRecord{
			200: {player("Pedri", "pedro-gonzalez-lopez", 200, 200, "3")},
		},
	}
	msg := h.HandleCommand(command(1, "/table"))
	if !strings.Contains(msg.Text, "Pedri") || !strings.Contains(msg.Text, "Page 1 of 1") {
		t.Errorf("expected the new snapshot clamped to page 1:\n%s", msg.Text)
	}
}

func TestSummaryCommand(t *testing.T) {
	h, _ := newTestHandler(testDataset())

	msg := h.HandleCommand(command(1, "/summary"))
	for _, want := range []string{"14 players, 1 changed tier", "50 seal: 1 players", "200 seal: 13 players"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("summary missing %q:\n%s", want, msg.Text)
		}
	}
}

func TestChangedReport(t *testing.T) {
	if got := ChangedReport(&models.Dataset{TierGroups: map[int][]models.PlayerRecord{}}); got != "" {
		t.Errorf("expected empty report, got %q", got)
	}

	report := ChangedReport(testDataset())
	if !strings.HasPrefix(report, "*1 players changed seal tier*") || !strings.Contains(report, "Lionel Messi") {
		t.Errorf("unexpected report:\n%s", report)
	}

	group := make([]models.PlayerRecord, 25)
	for i := range group {
		group[i] = player("P", "p"+string(rune('a'+i)), 100, 50, "1")
	}
	report = ChangedReport(&models.Dataset{TierGroups: map[int][]models.PlayerRecord{100: group}})
	if !strings.HasSuffix(report, "...and 5 more") {
		t.Errorf("expected truncation, got:\n%s", report)
	}
}

func TestUnknownCommand(t *testing.T) {
	h, _ := newTestHandler(testDataset())
	if msg := h.HandleCommand(command(1, "/dance")); !strings.Contains(msg.Text, "Unknown command") {
		t.Errorf("unexpected reply %s", msg.Text)
	}
}

package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"keeper/internal/config"
	"keeper/internal/moderation"
	"keeper/internal/modules/autorole"
	"keeper/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// fakeDiscord serves both the handlers' REST calls and the tracker's
// platform calls from one in-memory guild.
type fakeDiscord struct {
	mu        sync.Mutex
	channels  []*discordgo.Channel
	slowmode  map[string]int
	locked    map[string]bool
	muted     map[string]bool
	banned    map[string]bool
	calls     []string
	responses []*discordgo.InteractionResponse
	edits     []*discordgo.WebhookEdit
}

var (
	_ Session             = (*fakeDiscord)(nil)
	_ moderation.Platform = (*fakeDiscord)(nil)
	_ autorole.Session    = (*fakeDiscord)(nil)
)

func newFakeDiscord() *fakeDiscord {
	return &fakeDiscord{
		slowmode: make(map[string]int),
		locked:   make(map[string]bool),
		muted:    make(map[string]bool),
		banned:   make(map[string]bool),
	}
}

func (f *fakeDiscord) record(call string) {
	f.calls = append(f.calls, call)
}

// lastEmbed is the embed of the most recent reply or deferred edit.
func (f *fakeDiscord) lastEmbed(t *testing.T) (*discordgo.MessageEmbed, bool) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := len(f.edits); n > 0 && f.edits[n-1].Embeds != nil {
		return (*f.edits[n-1].Embeds)[0], false
	}
	if n := len(f.responses); n > 0 && f.responses[n-1].Data != nil && len(f.responses[n-1].Data.Embeds) > 0 {
		data := f.responses[n-1].Data
		return data.Embeds[0], data.Flags&discordgo.MessageFlagsEphemeral != 0
	}
	t.Fatalf("no reply sent")
	return nil, false
}

func (f *fakeDiscord) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeDiscord) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit)
	return &discordgo.Message{}, nil
}

func (f *fakeDiscord) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &discordgo.Channel{ID: channelID, GuildID: "g1", RateLimitPerUser: f.slowmode[channelID]}, nil
}

func (f *fakeDiscord) GuildChannels(_ string, _ ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels, nil
}

func (f *fakeDiscord) ChannelMessages(string, int, string, string, string, ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	return nil, nil
}

func (f *fakeDiscord) ChannelMessageDelete(string, string, ...discordgo.RequestOption) error {
	return nil
}

func (f *fakeDiscord) ChannelMessagesBulkDelete(string, []string, ...discordgo.RequestOption) error {
	return nil
}

func (f *fakeDiscord) ChannelMessageSendEmbed(string, *discordgo.MessageEmbed, ...discordgo.RequestOption) (*discordgo.Message, error) {
	return &discordgo.Message{}, nil
}

func (f *fakeDiscord) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (f *fakeDiscord) GuildBan(_, userID string, _ ...discordgo.RequestOption) (*discordgo.GuildBan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.banned[userID] {
		return nil, moderation.ErrNotRestricted
	}
	return &discordgo.GuildBan{User: &discordgo.User{ID: userID}}, nil
}

func (f *fakeDiscord) GuildBanCreateWithReason(_, userID, _ string, days int, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banned[userID] = true
	f.record(fmt.Sprintf("ban %s days=%d", userID, days))
	return nil
}

func (f *fakeDiscord) GuildBanDelete(_, userID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.banned, userID)
	f.record("unban " + userID)
	return nil
}

func (f *fakeDiscord) GuildMemberDeleteWithReason(string, string, string, ...discordgo.RequestOption) error {
	return nil
}

func (f *fakeDiscord) GuildMemberTimeout(string, string, *time.Time, ...discordgo.RequestOption) error {
	return nil
}

func (f *fakeDiscord) GuildMember(_, userID string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	return &discordgo.Member{User: &discordgo.User{ID: userID}}, nil
}

func (f *fakeDiscord) GuildMemberRoleAdd(_, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("role " + userID + " " + roleID)
	return nil
}

func (f *fakeDiscord) ApplyRestriction(_ context.Context, key moderation.Key, opts moderation.ApplyOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch key.Kind {
	case moderation.Slowmode:
		f.slowmode[key.TargetID] = opts.Setting
	case moderation.ChannelLock:
		f.locked[key.TargetID] = true
	case moderation.Mute:
		f.muted[key.TargetID] = true
	case moderation.Ban:
		f.banned[key.TargetID] = true
	}
	return nil
}

func (f *fakeDiscord) ClearRestriction(_ context.Context, key moderation.Key, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch key.Kind {
	case moderation.Slowmode:
		delete(f.slowmode, key.TargetID)
	case moderation.ChannelLock:
		delete(f.locked, key.TargetID)
	case moderation.Mute:
		delete(f.muted, key.TargetID)
	case moderation.Ban:
		delete(f.banned, key.TargetID)
	}
	return nil
}

func (f *fakeDiscord) IsRestricted(_ context.Context, key moderation.Key) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch key.Kind {
	case moderation.Slowmode:
		return f.slowmode[key.TargetID] > 0, nil
	case moderation.ChannelLock:
		return f.locked[key.TargetID], nil
	case moderation.Mute:
		return f.muted[key.TargetID], nil
	case moderation.Ban:
		return f.banned[key.TargetID], nil
	}
	return false, nil
}

func (f *fakeDiscord) ResolveScope(context.Context, string) bool { return true }

func (f *fakeDiscord) ResolveTarget(context.Context, moderation.Key) bool { return true }

func newHandlerBot(t *testing.T, fake *fakeDiscord) *Bot {
	t.Helper()
	tracker := moderation.NewTracker(fake, zap.NewNop())
	t.Cleanup(tracker.Close)

	state := discordgo.NewState()
	state.User = &discordgo.User{ID: "bot"}
	b, err := New(Dependencies{
		Config:  config.DefaultConfig(),
		Session: &discordgo.Session{State: state},
		Tracker: tracker,
	})
	if err != nil {
		t.Fatalf("new bot: %v", err)
	}
	b.rest = fake
	return b
}

func slash(fake *fakeDiscord, name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *request {
	return &request{
		ctx:     context.Background(),
		session: fake,
		interaction: &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
			ID:        "i1",
			GuildID:   "g1",
			ChannelID: "c1",
		}},
		name:     name,
		guildID:  "g1",
		actorID:  "mod",
		settings: storage.GuildSettings{GuildID: "g1", Language: "en"},
		lang:     "en",
		opts:     optionMap(opts),
	}
}

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func userOpt(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionUser, Value: id}
}

func TestSlowmodeOffClearsTimedSlowmode(t *testing.T) {
	for _, off := range []string{"off", "0"} {
		t.Run(off, func(t *testing.T) {
			fake := newFakeDiscord()
			b := newHandlerBot(t, fake)
			key := moderation.Key{ScopeID: "g1", TargetID: "c1", Kind: moderation.Slowmode}

			if !b.handleSlowmode(slash(fake, "slowmode", stringOpt("delay", "30s"), stringOpt("duration", "1h"))) {
				t.Fatalf("setting slowmode failed")
			}
			if fake.slowmode["c1"] != 30 {
				t.Fatalf("expected 30s slowmode, got %d", fake.slowmode["c1"])
			}
			if _, ok := b.tracker.Get(key); !ok {
				t.Fatalf("expected a tracker entry")
			}

			if !b.handleSlowmode(slash(fake, "slowmode", stringOpt("delay", off))) {
				t.Fatalf("disabling slowmode failed")
			}
			if fake.slowmode["c1"] != 0 {
				t.Fatalf("slowmode still on: %d", fake.slowmode["c1"])
			}
			if _, ok := b.tracker.Get(key); ok {
				t.Fatalf("tracker entry survived %q", off)
			}
			embed, _ := fake.lastEmbed(t)
			if embed.Description != "Slowmode disabled in <#c1>." {
				t.Fatalf("unexpected reply %q", embed.Description)
			}
		})
	}
}

func TestSlowmodeOffWithoutSlowmode(t *testing.T) {
	fake := newFakeDiscord()
	b := newHandlerBot(t, fake)

	if b.handleSlowmode(slash(fake, "slowmode", stringOpt("delay", "off"))) {
		t.Fatalf("expected failure")
	}
	embed, ephemeral := fake.lastEmbed(t)
	if embed.Description != b.t("en", "error_not_restricted") || !ephemeral {
		t.Fatalf("unexpected reply %q (ephemeral=%v)", embed.Description, ephemeral)
	}
}

func TestSlowmodeWithoutDelayShowsCurrent(t *testing.T) {
	fake := newFakeDiscord()
	fake.slowmode["c1"] = 45
	b := newHandlerBot(t, fake)

	if !b.handleSlowmode(slash(fake, "slowmode")) {
		t.Fatalf("show failed")
	}
	embed, _ := fake.lastEmbed(t)
	if embed.Description != "Slowmode in <#c1> is 45 seconds." {
		t.Fatalf("unexpected reply %q", embed.Description)
	}
	if fake.slowmode["c1"] != 45 {
		t.Fatalf("showing must not change the delay")
	}
}

func TestSlowmodeBareSeconds(t *testing.T) {
	fake := newFakeDiscord()
	b := newHandlerBot(t, fake)

	if !b.handleSlowmode(slash(fake, "slowmode", stringOpt("delay", "30"))) {
		t.Fatalf("bare seconds rejected")
	}
	if fake.slowmode["c1"] != 30 {
		t.Fatalf("expected 30s, got %d", fake.slowmode["c1"])
	}
	if b.handleSlowmode(slash(fake, "slowmode", stringOpt("delay", "-5"))) {
		t.Fatalf("negative delay accepted")
	}
	if b.handleSlowmode(slash(fake, "slowmode", stringOpt("delay", "21601"))) {
		t.Fatalf("delay over six hours accepted")
	}
}

func TestSlowmodeDelay(t *testing.T) {
	cases := map[string]time.Duration{
		"30":  30 * time.Second,
		"10s": 10 * time.Second,
		"5m":  5 * time.Minute,
		"1h":  time.Hour,
	}
	for input, want := range cases {
		got, err := slowmodeDelay(input)
		if err != nil || got != want {
			t.Errorf("slowmodeDelay(%q) = %v, %v", input, got, err)
		}
	}
	for _, input := range []string{"-1", "5x", "1.5h", ""} {
		if _, err := slowmodeDelay(input); err == nil {
			t.Errorf("slowmodeDelay(%q) accepted", input)
		}
	}
}

func TestInteractionRoutesSlowmodeOff(t *testing.T) {
	fake := newFakeDiscord()
	fake.slowmode["c1"] = 10
	b := newHandlerBot(t, fake)

	b.handleInteraction(fake, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "g1",
		ChannelID: "c1",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "mod"}, Permissions: discordgo.PermissionManageChannels},
		Data: discordgo.ApplicationCommandInteractionData{
			Name:    "slowmode",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{stringOpt("delay", "off")},
		},
	}})

	if fake.slowmode["c1"] != 0 {
		t.Fatalf("slowmode still on")
	}
	embed, _ := fake.lastEmbed(t)
	if !strings.HasPrefix(embed.Description, "Slowmode disabled") {
		t.Fatalf("unexpected reply %q", embed.Description)
	}
}

func voiceGuild(t *testing.T, b *Bot, members ...string) {
	t.Helper()
	states := []*discordgo.VoiceState{{GuildID: "g1", UserID: "mod", ChannelID: "vc1"}, {GuildID: "g1", UserID: "bot", ChannelID: "vc1"}}
	for _, id := range members {
		states = append(states, &discordgo.VoiceState{GuildID: "g1", UserID: id, ChannelID: "vc1"})
	}
	if err := b.state.GuildAdd(&discordgo.Guild{ID: "g1", Name: "Test", VoiceStates: states}); err != nil {
		t.Fatalf("guild add: %v", err)
	}
}

func TestChannelUnmuteSkipsMembersNotMuted(t *testing.T) {
	fake := newFakeDiscord()
	fake.muted["u1"] = true
	b := newHandlerBot(t, fake)
	voiceGuild(t, b, "u1", "u2", "u3")

	if !b.handleVoice(slash(fake, "unmute"), moderation.Mute, false) {
		t.Fatalf("channel unmute reported failure")
	}
	if fake.muted["u1"] {
		t.Fatalf("u1 still muted")
	}
	embed, _ := fake.lastEmbed(t)
	if embed.Description != "Unmuted 1 member(s) in <#vc1>." {
		t.Fatalf("unexpected reply %q", embed.Description)
	}
	for _, field := range embed.Fields {
		if field.Name == b.t("en", "field_failed") {
			t.Fatalf("members that were not muted counted as failures")
		}
	}
}

func TestChannelMuteLeavesActorAndBot(t *testing.T) {
	fake := newFakeDiscord()
	b := newHandlerBot(t, fake)
	voiceGuild(t, b, "u1", "u2")

	if !b.handleVoice(slash(fake, "mute", stringOpt("duration", "10m")), moderation.Mute, true) {
		t.Fatalf("channel mute failed")
	}
	if !fake.muted["u1"] || !fake.muted["u2"] || fake.muted["mod"] || fake.muted["bot"] {
		t.Fatalf("unexpected mutes %v", fake.muted)
	}
	if n := len(b.tracker.List("g1")); n != 2 {
		t.Fatalf("expected 2 timers, got %d", n)
	}
}

func TestLockdownFanOut(t *testing.T) {
	fake := newFakeDiscord()
	fake.channels = []*discordgo.Channel{
		{ID: "t1", Type: discordgo.ChannelTypeGuildText},
		{ID: "t2", Type: discordgo.ChannelTypeGuildText},
		{ID: "n1", Type: discordgo.ChannelTypeGuildNews},
		{ID: "v1", Type: discordgo.ChannelTypeGuildVoice},
	}
	b := newHandlerBot(t, fake)

	on := slash(fake, "lockdown", stringOpt("value", "on"), stringOpt("duration", "30m"))
	if !b.handleLockdown(on) {
		t.Fatalf("lockdown on failed")
	}
	if len(fake.locked) != 3 || fake.locked["v1"] {
		t.Fatalf("unexpected locks %v", fake.locked)
	}
	if n := len(b.tracker.List("g1")); n != 3 {
		t.Fatalf("expected 3 timers, got %d", n)
	}

	delete(fake.locked, "t2")
	if !b.handleLockdown(slash(fake, "lockdown", stringOpt("value", "off"))) {
		t.Fatalf("lockdown off failed")
	}
	if len(fake.locked) != 0 {
		t.Fatalf("channels still locked: %v", fake.locked)
	}
	embed, _ := fake.lastEmbed(t)
	if embed.Description != "Lockdown lifted: 2 channel(s) unlocked." {
		t.Fatalf("unexpected reply %q", embed.Description)
	}
	if n := len(b.tracker.List("g1")); n != 0 {
		t.Fatalf("expected no timers, got %d", n)
	}
}

func TestSoftbanBansThenUnbans(t *testing.T) {
	fake := newFakeDiscord()
	b := newHandlerBot(t, fake)

	if !b.handleSoftban(slash(fake, "softban", userOpt("member", "u1"))) {
		t.Fatalf("softban failed")
	}
	want := []string{"ban u1 days=1", "unban u1"}
	if strings.Join(fake.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected calls %v", fake.calls)
	}
	if fake.banned["u1"] {
		t.Fatalf("user left banned")
	}
	if _, ok := b.tracker.Get(moderation.Key{ScopeID: "g1", TargetID: "u1", Kind: moderation.Ban}); ok {
		t.Fatalf("softban must not create a timed ban")
	}

	if b.handleSoftban(slash(fake, "softban", userOpt("member", "mod"))) {
		t.Fatalf("self softban accepted")
	}
}

type autoroleList []storage.Autorole

func (l autoroleList) ListAutoroles(context.Context, string) ([]storage.Autorole, error) {
	return l, nil
}

func TestMemberEventsDriveAutorole(t *testing.T) {
	fake := newFakeDiscord()
	b := newHandlerBot(t, fake)
	b.autorole = autorole.New(autoroleList{{GuildID: "g1", RoleID: "r1", Delay: time.Hour}}, fake, nil)
	t.Cleanup(b.autorole.Close)

	b.onGuildMemberAdd(nil, &discordgo.GuildMemberAdd{Member: &discordgo.Member{GuildID: "g1", User: &discordgo.User{ID: "bot2", Bot: true}}})
	if n := b.autorole.Pending(); n != 0 {
		t.Fatalf("bots must not get autoroles, %d pending", n)
	}

	b.onGuildMemberAdd(nil, &discordgo.GuildMemberAdd{Member: &discordgo.Member{GuildID: "g1", User: &discordgo.User{ID: "u1"}}})
	if n := b.autorole.Pending(); n != 1 {
		t.Fatalf("expected 1 pending, got %d", n)
	}
	b.onGuildMemberRemove(nil, &discordgo.GuildMemberRemove{Member: &discordgo.Member{GuildID: "g1", User: &discordgo.User{ID: "u1"}}})
	if n := b.autorole.Pending(); n != 0 {
		t.Fatalf("leaving must cancel the assignment, %d pending", n)
	}
}

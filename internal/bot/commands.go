package bot

import (
	"sort"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func localized(en, fr string) map[discordgo.Locale]string {
	return map[discordgo.Locale]string{
		discordgo.EnglishUS: en,
		discordgo.EnglishGB: en,
		discordgo.French:    fr,
	}
}

func command(name, en, fr string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommand {
	desc := localized(en, fr)
	dm := false
	cmd := &discordgo.ApplicationCommand{
		Name:                     name,
		Description:              en,
		DescriptionLocalizations: &desc,
		DMPermission:             &dm,
		Options:                  opts,
	}
	if perm, ok := commandPermissions[name]; ok {
		cmd.DefaultMemberPermissions = &perm
	}
	return cmd
}

func option(kind discordgo.ApplicationCommandOptionType, name, en, fr string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:                     kind,
		Name:                     name,
		Description:              en,
		DescriptionLocalizations: localized(en, fr),
		Required:                 required,
	}
}

func reasonOption() *discordgo.ApplicationCommandOption {
	opt := option(discordgo.ApplicationCommandOptionString, "reason", "Reason shown in the audit log", "Raison inscrite au journal d'audit", false)
	opt.MaxLength = 400
	return opt
}

func durationOption(en, fr string) *discordgo.ApplicationCommandOption {
	return option(discordgo.ApplicationCommandOptionString, "duration", en, fr, false)
}

func textChannelOption(en, fr string) *discordgo.ApplicationCommandOption {
	opt := option(discordgo.ApplicationCommandOptionChannel, "channel", en, fr, false)
	opt.ChannelTypes = []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews, discordgo.ChannelTypeGuildForum}
	return opt
}

func choices(values ...string) []*discordgo.ApplicationCommandOptionChoice {
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(values))
	for _, value := range values {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: value, Value: value})
	}
	return out
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	one := float64(1)
	zero := float64(0)

	amount := option(discordgo.ApplicationCommandOptionInteger, "amount", "Number of messages to scan and delete (1-100)", "Nombre de messages a supprimer (1-100)", true)
	amount.MinValue = &one
	amount.MaxValue = 100

	filter := option(discordgo.ApplicationCommandOptionString, "filter", "Only delete messages of this kind", "Supprimer seulement ce type de message", false)
	filter.Choices = choices("all", "bots", "links", "attachments")

	deleteDays := option(discordgo.ApplicationCommandOptionInteger, "delete_days", "Days of messages to delete (0-7)", "Jours de messages a supprimer (0-7)", false)
	deleteDays.MinValue = &zero
	deleteDays.MaxValue = 7

	limit := option(discordgo.ApplicationCommandOptionInteger, "limit", "Number of cases to show (1-25)", "Nombre de dossiers a afficher (1-25)", false)
	limit.MinValue = &one
	limit.MaxValue = 25

	lockdownState := option(discordgo.ApplicationCommandOptionString, "value", "on or off", "on ou off", true)
	lockdownState.Choices = choices("on", "off")

	language := option(discordgo.ApplicationCommandOptionString, "value", "en or fr", "en ou fr", true)
	language.Choices = choices("en", "fr")

	period := option(discordgo.ApplicationCommandOptionString, "period", "day, week or month", "day, week ou month", false)
	period.Choices = choices("day", "week", "month")

	softbanDays := option(discordgo.ApplicationCommandOptionInteger, "delete_days", "Message history to delete", "Historique de messages a supprimer", false)
	softbanDays.Choices = []*discordgo.ApplicationCommandOptionChoice{
		{Name: "none", Value: 0},
		{Name: "24h", Value: 1},
		{Name: "7d", Value: 7},
	}

	autoroleAdd := option(discordgo.ApplicationCommandOptionSubCommand, "add", "Give a role to new members", "Donner un role aux nouveaux membres", false)
	autoroleAdd.Options = []*discordgo.ApplicationCommandOption{
		option(discordgo.ApplicationCommandOptionRole, "role", "Role to give", "Role a donner", true),
		option(discordgo.ApplicationCommandOptionString, "delay", "Wait before giving it, e.g. 10m, 1h (max 7d)", "Attendre avant, ex. 10m, 1h (max 7d)", false),
	}
	autoroleRemove := option(discordgo.ApplicationCommandOptionSubCommand, "remove", "Stop giving a role to new members", "Ne plus donner un role aux nouveaux membres", false)
	autoroleRemove.Options = []*discordgo.ApplicationCommandOption{
		option(discordgo.ApplicationCommandOptionRole, "role", "Role to stop giving", "Role a retirer", true),
	}
	autoroleList := option(discordgo.ApplicationCommandOptionSubCommand, "list", "List autoroles", "Lister les roles automatiques", false)
	autoroleClear := option(discordgo.ApplicationCommandOptionSubCommand, "clear", "Remove every autorole", "Supprimer tous les roles automatiques", false)

	timeoutAdd := option(discordgo.ApplicationCommandOptionSubCommand, "add", "Time out a member", "Exclure temporairement un membre", false)
	timeoutAdd.Options = []*discordgo.ApplicationCommandOption{
		option(discordgo.ApplicationCommandOptionUser, "member", "Member to time out", "Membre a exclure", true),
		option(discordgo.ApplicationCommandOptionString, "duration", "How long, e.g. 10m, 2h, 7d (max 28d)", "Duree, ex. 10m, 2h, 7d (max 28d)", true),
		reasonOption(),
	}
	timeoutRemove := option(discordgo.ApplicationCommandOptionSubCommand, "remove", "Remove a member's time out", "Retirer l'exclusion d'un membre", false)
	timeoutRemove.Options = []*discordgo.ApplicationCommandOption{
		option(discordgo.ApplicationCommandOptionUser, "member", "Member to release", "Membre a liberer", true),
		reasonOption(),
	}

	return []*discordgo.ApplicationCommand{
		command("mute", "Server-mute a member, or everyone in your voice channel", "Rendre muet un membre, ou tout votre salon vocal",
			option(discordgo.ApplicationCommandOptionUser, "member", "Member to mute; omit for your whole voice channel", "Membre; vide pour tout le salon vocal", false),
			durationOption("Lift the mute after, e.g. 10m, 2h", "Lever apres, ex. 10m, 2h"),
			reasonOption(),
		),
		command("unmute", "Lift a server mute", "Lever un mute serveur",
			option(discordgo.ApplicationCommandOptionUser, "member", "Member to unmute; omit for your whole voice channel", "Membre; vide pour tout le salon vocal", false),
			reasonOption(),
		),
		command("deafen", "Server-deafen a member, or everyone in your voice channel", "Rendre sourd un membre, ou tout votre salon vocal",
			option(discordgo.ApplicationCommandOptionUser, "member", "Member to deafen; omit for your whole voice channel", "Membre; vide pour tout le salon vocal", false),
			durationOption("Lift the deafen after, e.g. 10m, 2h", "Lever apres, ex. 10m, 2h"),
			reasonOption(),
		),
		command("undeafen", "Lift a server deafen", "Lever une sourdine serveur",
			option(discordgo.ApplicationCommandOptionUser, "member", "Member to undeafen; omit for your whole voice channel", "Membre; vide pour tout le salon vocal", false),
			reasonOption(),
		),
		command("lock", "Stop @everyone from sending messages in a channel", "Empecher @everyone d'ecrire dans un salon",
			textChannelOption("Channel to lock (default: this one)", "Salon a verrouiller (defaut: celui-ci)"),
			durationOption("Unlock after, e.g. 30m", "Deverrouiller apres, ex. 30m"),
			reasonOption(),
		),
		command("unlock", "Let @everyone send messages again", "Autoriser de nouveau @everyone a ecrire",
			textChannelOption("Channel to unlock (default: this one)", "Salon a deverrouiller (defaut: celui-ci)"),
			reasonOption(),
		),
		command("slowmode", "Show or set a channel's slowmode", "Afficher ou regler le mode lent d'un salon",
			option(discordgo.ApplicationCommandOptionString, "delay", "Per-user delay, e.g. 10s, 5m, 1h; 0 or off disables", "Delai par membre, ex. 10s, 5m; 0 ou off desactive", false),
			textChannelOption("Channel (default: this one)", "Salon (defaut: celui-ci)"),
			durationOption("Disable slowmode after, e.g. 1h", "Desactiver apres, ex. 1h"),
			reasonOption(),
		),
		command("ban", "Ban a user, optionally for a limited time", "Bannir un utilisateur, eventuellement pour une duree",
			option(discordgo.ApplicationCommandOptionUser, "user", "User to ban", "Utilisateur a bannir", true),
			reasonOption(),
			deleteDays,
			durationOption("Unban after, e.g. 7d; omit for permanent", "Debannir apres, ex. 7d; vide pour permanent"),
		),
		command("unban", "Lift a ban", "Lever un bannissement",
			option(discordgo.ApplicationCommandOptionString, "user_id", "ID of the banned user", "ID de l'utilisateur banni", true),
			reasonOption(),
		),
		command("baninfo", "Show why and until when a user is banned", "Afficher la raison et la fin d'un bannissement",
			option(discordgo.ApplicationCommandOptionString, "user_id", "ID of the banned user", "ID de l'utilisateur banni", true),
		),
		command("kick", "Remove a member from the server", "Expulser un membre du serveur",
			option(discordgo.ApplicationCommandOptionUser, "member", "Member to kick", "Membre a expulser", true),
			reasonOption(),
		),
		command("softban", "Ban and unban at once to delete a member's messages", "Bannir puis debannir pour effacer les messages",
			option(discordgo.ApplicationCommandOptionUser, "member", "Member to softban", "Membre a softban", true),
			softbanDays,
			reasonOption(),
		),
		command("timeout", "Manage member time outs", "Gerer les exclusions temporaires", timeoutAdd, timeoutRemove),
		command("purge", "Bulk delete recent messages in this channel", "Supprimer en masse les messages recents du salon",
			amount,
			option(discordgo.ApplicationCommandOptionUser, "user", "Only messages from this user", "Seulement les messages de cet utilisateur", false),
			filter,
			option(discordgo.ApplicationCommandOptionString, "contains", "Only messages containing this text", "Seulement les messages contenant ce texte", false),
			option(discordgo.ApplicationCommandOptionString, "domain", "With the links filter, only links to this domain", "Avec le filtre links, seulement ce domaine", false),
		),
		command("lockdown", "Lock or unlock every text channel", "Verrouiller ou deverrouiller tous les salons textuels",
			lockdownState,
			durationOption("End the lockdown after, e.g. 15m", "Terminer apres, ex. 15m"),
			reasonOption(),
		),
		command("timers", "List active timed restrictions", "Lister les restrictions temporaires actives"),
		command("modlog", "Show a user's moderation history", "Afficher l'historique de moderation d'un utilisateur",
			option(discordgo.ApplicationCommandOptionUser, "user", "User to look up", "Utilisateur a consulter", true),
			limit,
		),
		command("case", "Show one moderation case", "Afficher un dossier de moderation",
			option(discordgo.ApplicationCommandOptionString, "reference", "Case reference", "Reference du dossier", true),
		),
		command("logs", "Show or set the moderation log channel", "Afficher ou definir le salon de journal",
			textChannelOption("New log channel", "Nouveau salon de journal"),
		),
		command("autorole", "Configure roles given to new members", "Configurer les roles donnes aux nouveaux membres",
			autoroleAdd, autoroleRemove, autoroleList, autoroleClear),
		command("language", "Set the bot language for this server", "Definir la langue du bot pour ce serveur", language),
		command("report", "Moderation activity summary", "Resume de l'activite de moderation", period),
		command("status", "Show moderation status", "Afficher le statut de moderation"),
	}
}

func (b *Bot) registerCommands() error {
	commands := commandDefinitions()

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	stale := make([]string, 0)
	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
		stale = append(stale, cmd.Name)
	}
	sort.Strings(stale)
	if len(stale) > 0 {
		b.logger.Info("removed stale commands", zap.Strings("commands", stale))
	}
	return nil
}

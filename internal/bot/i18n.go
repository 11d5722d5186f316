package bot

// messages holds the reply strings per language. English is the fallback
// for missing keys.
var messages = map[string]map[string]string{
	"en": {
		"footer_brand": "Keeper moderation",

		"mute_title":     "Mute",
		"unmute_title":   "Unmute",
		"deafen_title":   "Deafen",
		"undeafen_title": "Undeafen",
		"lock_title":     "Channel lock",
		"unlock_title":   "Channel unlock",
		"slowmode_title": "Slowmode",
		"ban_title":      "Ban",
		"unban_title":    "Unban",
		"baninfo_title":  "Ban info",
		"kick_title":     "Kick",
		"timeout_title":  "Time out",
		"purge_title":    "Purge",
		"lockdown_title": "Lockdown",
		"timers_title":   "Active timers",
		"modlog_title":   "Moderation history",
		"case_title":     "Moderation case",
		"logs_title":     "Moderation log",
		"language_title": "Language",
		"report_title":   "Moderation report",
		"status_title":   "Moderation status",
		"error_title":    "Error",

		"mute_done":             "%s has been muted.",
		"unmute_done":           "%s has been unmuted.",
		"deafen_done":           "%s has been deafened.",
		"undeafen_done":         "%s has been undeafened.",
		"mute_channel_done":     "Muted %d member(s) in %s.",
		"unmute_channel_done":   "Unmuted %d member(s) in %s.",
		"deafen_channel_done":   "Deafened %d member(s) in %s.",
		"undeafen_channel_done": "Undeafened %d member(s) in %s.",
		"lock_done":             "%s is locked.",
		"unlock_done":           "%s is unlocked.",
		"slowmode_done":         "Slowmode in %s set to %s.",
		"slowmode_current":      "Slowmode in %s is %s.",
		"slowmode_off":          "Slowmode is off in %s.",
		"slowmode_disabled":     "Slowmode disabled in %s.",
		"ban_done":              "%s has been banned.",
		"unban_done":            "%s has been unbanned.",
		"kick_done":             "%s has been kicked.",
		"timeout_done":          "%s has been timed out.",
		"timeout_removed":       "%s is no longer timed out.",
		"purge_done":            "Deleted %d message(s) in %s.",
		"purge_nothing":         "No recent message matched the filters.",
		"lockdown_on":           "Lockdown started: %d channel(s) locked.",
		"lockdown_off":          "Lockdown lifted: %d channel(s) unlocked.",
		"timers_none":           "No timed restriction is active.",
		"list_more":             "...and %d more.",
		"modlog_none":           "No case recorded for %s.",
		"modlog_header":         "Moderation history (%d)",
		"logs_current":          "Moderation actions are posted to this channel.",
		"logs_updated":          "Moderation log channel updated.",
		"language_updated":      "Language set to English.",
		"report_desc":           "Activity since <t:%d:R>.",
		"status_desc":           "Current moderation state of this server.",
		"guard_value":           "%d actions / %ds",

		"dm_ban_title":     "You have been banned",
		"dm_ban_desc":      "You were banned from **%s**.\nReason: %s",
		"dm_kick_title":    "You have been kicked",
		"dm_kick_desc":     "You were kicked from **%s**.\nReason: %s",
		"dm_timeout_title": "You have been timed out",
		"dm_timeout_desc":  "You were timed out in **%s** for %s.\nReason: %s",

		"field_action":     "Action",
		"field_active":     "Active timers",
		"field_case":       "Case",
		"field_cases":      "Cases",
		"field_channel":    "Channel",
		"field_critical":   "Critical",
		"field_date":       "Date",
		"field_dm":         "DM on action",
		"field_duration":   "Duration",
		"field_events":     "Events",
		"field_expires":    "Expires",
		"field_failed":     "Failed",
		"field_guard":      "Action guard",
		"field_language":   "Language",
		"field_level":      "Level",
		"field_lockdown":   "Lockdown",
		"field_moderator":  "Moderator",
		"field_period":     "Period",
		"field_reason":     "Reason",
		"field_top_events": "Top events",
		"field_user":       "User",

		"value_not_set":   "Not set",
		"value_on":        "On",
		"value_off":       "Off",
		"value_permanent": "Permanent",
		"period_day":      "Last 24 hours",
		"period_week":     "Last 7 days",
		"period_month":    "Last month",

		"event_restriction_applied":  "Restriction applied",
		"event_restriction_reversed": "Restriction lifted",
		"event_restriction_expired":  "Restriction expired",
		"event_member_kicked":        "Member kicked",
		"event_member_timed_out":     "Member timed out",
		"event_timeout_removed":      "Time out removed",
		"event_messages_purged":      "Messages purged",
		"event_lockdown":             "Lockdown",
		"event_guard_tripped":        "Action guard tripped",
		"event_settings_changed":     "Settings changed",

		"error_only_guild":          "This command only works in a server.",
		"error_missing_permission":  "You are missing the permission this command needs.",
		"error_unknown_command":     "Unknown command.",
		"error_failed":              "The action failed. Try again later.",
		"error_invalid_duration":    "Invalid duration. Use a number followed by s, m, h or d, e.g. 10m.",
		"error_invalid_delay":       "Invalid slowmode delay. Use seconds or e.g. 10s, 5m, 1h, at most 6h; 0 or off disables it.",
		"error_permission_denied":   "I am not allowed to do that here.",
		"error_not_restricted":      "That target is not currently restricted.",
		"error_target_not_found":    "Target not found.",
		"error_not_in_voice":        "That member is not connected to voice.",
		"error_actor_not_in_voice":  "Pick a member or join a voice channel first.",
		"error_voice_empty":         "Nobody else is in your voice channel.",
		"error_self_target":         "You cannot target yourself.",
		"error_bot_target":          "I cannot target myself.",
		"error_hierarchy":           "That member's top role is not below yours.",
		"error_bot_hierarchy":       "That member's top role is not below mine.",
		"error_guard":               "Too many destructive actions in a short time. Wait a moment.",
		"error_invalid_user_id":     "Give a user id or mention.",
		"error_not_banned":          "That user is not banned.",
		"error_timeout_too_long":    "A time out cannot exceed 28 days.",
		"error_purge_amount":        "Amount must be between 1 and 100.",
		"error_purge_filter":        "Unknown filter.",
		"error_storage_unavailable": "Storage is not available.",
		"error_case_not_found":      "No case with that reference.",

		"softban_title":           "Softban",
		"softban_done":            "%s has been softbanned; %d day(s) of messages removed.",
		"dm_softban_title":        "You have been softbanned",
		"dm_softban_desc":         "You were removed from **%s** and your recent messages were deleted. You may rejoin.\nReason: %s",
		"autorole_title":          "Autorole",
		"autorole_added":          "New members will receive %s%s.",
		"autorole_removed":        "%s is no longer given to new members.",
		"autorole_cleared":        "Removed %d autorole(s).",
		"autorole_none":           "No autorole is configured.",
		"autorole_delay":          " after %s",
		"event_member_softbanned": "Member softbanned",
	},
	"fr": {
		"footer_brand": "Moderation Keeper",

		"mute_title":     "Mute",
		"unmute_title":   "Fin du mute",
		"deafen_title":   "Sourdine",
		"undeafen_title": "Fin de la sourdine",
		"lock_title":     "Verrouillage",
		"unlock_title":   "Deverrouillage",
		"slowmode_title": "Mode lent",
		"ban_title":      "Bannissement",
		"unban_title":    "Debannissement",
		"baninfo_title":  "Infos bannissement",
		"kick_title":     "Expulsion",
		"timeout_title":  "Exclusion temporaire",
		"purge_title":    "Purge",
		"lockdown_title": "Confinement",
		"timers_title":   "Minuteries actives",
		"modlog_title":   "Historique de moderation",
		"case_title":     "Dossier de moderation",
		"logs_title":     "Journal de moderation",
		"language_title": "Langue",
		"report_title":   "Rapport de moderation",
		"status_title":   "Statut de moderation",
		"error_title":    "Erreur",

		"mute_done":             "%s est maintenant muet.",
		"unmute_done":           "%s n'est plus muet.",
		"deafen_done":           "%s est maintenant sourd.",
		"undeafen_done":         "%s n'est plus sourd.",
		"mute_channel_done":     "%d membre(s) rendu(s) muet(s) dans %s.",
		"unmute_channel_done":   "%d membre(s) retabli(s) dans %s.",
		"deafen_channel_done":   "%d membre(s) mis en sourdine dans %s.",
		"undeafen_channel_done": "%d membre(s) sorti(s) de sourdine dans %s.",
		"lock_done":             "%s est verrouille.",
		"unlock_done":           "%s est deverrouille.",
		"slowmode_done":         "Mode lent de %s regle sur %s.",
		"slowmode_current":      "Le mode lent de %s est de %s.",
		"slowmode_off":          "Le mode lent est desactive dans %s.",
		"slowmode_disabled":     "Mode lent desactive dans %s.",
		"ban_done":              "%s a ete banni.",
		"unban_done":            "%s a ete debanni.",
		"kick_done":             "%s a ete expulse.",
		"timeout_done":          "%s a ete exclu temporairement.",
		"timeout_removed":       "%s n'est plus exclu.",
		"purge_done":            "%d message(s) supprime(s) dans %s.",
		"purge_nothing":         "Aucun message recent ne correspond aux filtres.",
		"lockdown_on":           "Confinement active : %d salon(s) verrouille(s).",
		"lockdown_off":          "Confinement leve : %d salon(s) deverrouille(s).",
		"timers_none":           "Aucune restriction temporaire active.",
		"list_more":             "...et %d de plus.",
		"modlog_none":           "Aucun dossier pour %s.",
		"modlog_header":         "Historique de moderation (%d)",
		"logs_current":          "Les actions de moderation sont publiees dans ce salon.",
		"logs_updated":          "Salon du journal de moderation mis a jour.",
		"language_updated":      "Langue reglee sur le francais.",
		"report_desc":           "Activite depuis <t:%d:R>.",
		"status_desc":           "Etat actuel de la moderation du serveur.",
		"guard_value":           "%d actions / %ds",

		"dm_ban_title":     "Vous avez ete banni",
		"dm_ban_desc":      "Vous avez ete banni de **%s**.\nRaison : %s",
		"dm_kick_title":    "Vous avez ete expulse",
		"dm_kick_desc":     "Vous avez ete expulse de **%s**.\nRaison : %s",
		"dm_timeout_title": "Vous avez ete exclu temporairement",
		"dm_timeout_desc":  "Vous avez ete exclu de **%s** pour %s.\nRaison : %s",

		"field_action":     "Action",
		"field_active":     "Minuteries actives",
		"field_case":       "Dossier",
		"field_cases":      "Dossiers",
		"field_channel":    "Salon",
		"field_critical":   "Critiques",
		"field_date":       "Date",
		"field_dm":         "MP lors d'une action",
		"field_duration":   "Duree",
		"field_events":     "Evenements",
		"field_expires":    "Expire",
		"field_failed":     "Echecs",
		"field_guard":      "Garde-fou",
		"field_language":   "Langue",
		"field_level":      "Niveau",
		"field_lockdown":   "Confinement",
		"field_moderator":  "Moderateur",
		"field_period":     "Periode",
		"field_reason":     "Raison",
		"field_top_events": "Principaux evenements",
		"field_user":       "Utilisateur",

		"value_not_set":   "Non defini",
		"value_on":        "Active",
		"value_off":       "Desactive",
		"value_permanent": "Permanent",
		"period_day":      "Dernieres 24 heures",
		"period_week":     "7 derniers jours",
		"period_month":    "Dernier mois",

		"event_restriction_applied":  "Restriction appliquee",
		"event_restriction_reversed": "Restriction levee",
		"event_restriction_expired":  "Restriction expiree",
		"event_member_kicked":        "Membre expulse",
		"event_member_timed_out":     "Membre exclu",
		"event_timeout_removed":      "Exclusion retiree",
		"event_messages_purged":      "Messages purges",
		"event_lockdown":             "Confinement",
		"event_guard_tripped":        "Garde-fou declenche",
		"event_settings_changed":     "Parametres modifies",

		"error_only_guild":          "Cette commande ne fonctionne que sur un serveur.",
		"error_missing_permission":  "Il vous manque la permission requise.",
		"error_unknown_command":     "Commande inconnue.",
		"error_failed":              "L'action a echoue. Reessayez plus tard.",
		"error_invalid_duration":    "Duree invalide. Utilisez un nombre suivi de s, m, h ou d, ex. 10m.",
		"error_invalid_delay":       "Delai invalide. Utilisez des secondes ou ex. 10s, 5m, 1h, 6h maximum ; 0 ou off desactive.",
		"error_permission_denied":   "Je n'ai pas le droit de faire cela ici.",
		"error_not_restricted":      "Cette cible n'est pas restreinte.",
		"error_target_not_found":    "Cible introuvable.",
		"error_not_in_voice":        "Ce membre n'est pas connecte en vocal.",
		"error_actor_not_in_voice":  "Choisissez un membre ou rejoignez un salon vocal.",
		"error_voice_empty":         "Personne d'autre n'est dans votre salon vocal.",
		"error_self_target":         "Vous ne pouvez pas vous cibler vous-meme.",
		"error_bot_target":          "Je ne peux pas me cibler moi-meme.",
		"error_hierarchy":           "Le role le plus eleve de ce membre n'est pas sous le votre.",
		"error_bot_hierarchy":       "Le role le plus eleve de ce membre n'est pas sous le mien.",
		"error_guard":               "Trop d'actions destructrices en peu de temps. Patientez.",
		"error_invalid_user_id":     "Indiquez un identifiant ou une mention.",
		"error_not_banned":          "Cet utilisateur n'est pas banni.",
		"error_timeout_too_long":    "Une exclusion ne peut pas depasser 28 jours.",
		"error_purge_amount":        "Le nombre doit etre entre 1 et 100.",
		"error_purge_filter":        "Filtre inconnu.",
		"error_storage_unavailable": "Le stockage n'est pas disponible.",
		"error_case_not_found":      "Aucun dossier avec cette reference.",

		"softban_title":           "Softban",
		"softban_done":            "%s a ete softban ; %d jour(s) de messages supprimes.",
		"dm_softban_title":        "Vous avez ete softban",
		"dm_softban_desc":         "Vous avez ete retire de **%s** et vos messages recents ont ete supprimes. Vous pouvez revenir.\nRaison : %s",
		"autorole_title":          "Role automatique",
		"autorole_added":          "Les nouveaux membres recevront %s%s.",
		"autorole_removed":        "%s n'est plus donne aux nouveaux membres.",
		"autorole_cleared":        "%d role(s) automatique(s) supprime(s).",
		"autorole_none":           "Aucun role automatique configure.",
		"autorole_delay":          " apres %s",
		"event_member_softbanned": "Membre softban",
	},
}

// t returns the message for key in lang, falling back to English and then to
// the key itself.
func (b *Bot) t(lang, key string) string {
	if table, ok := messages[lang]; ok {
		if value, ok := table[key]; ok {
			return value
		}
	}
	if value, ok := messages["en"][key]; ok {
		return value
	}
	return key
}

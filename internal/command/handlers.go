package command

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kmarcin/opal/internal/game"
	"github.com/kmarcin/opal/internal/user"
)

// RegisterDefaults installs the built-in command set.
func RegisterDefaults(reg *Registry) {
	reg.Register(&Descriptor{
		Names:   []string{"HELP"},
		Help:    []string{"HELP [command] - list commands or show help for one"},
		Handler: handleHelp,
	})
	reg.Register(&Descriptor{
		Names:   []string{"INFO"},
		Help:    []string{"INFO - bot version and uptime"},
		Handler: handleInfo,
	})
	reg.Register(&Descriptor{
		Names:   []string{"WHOAMI"},
		Help:    []string{"WHOAMI - show how the bot identifies you"},
		Handler: handleWhoami,
	})
	reg.Register(&Descriptor{
		Names:      []string{"JOIN"},
		Restricted: true,
		Help:       []string{"JOIN <channel> [key] - join a channel"},
		Handler:    handleJoin,
	})
	reg.Register(&Descriptor{
		Names:      []string{"PART"},
		Restricted: true,
		Help:       []string{"PART <channel> - leave a channel"},
		Handler:    handlePart,
	})
	reg.Register(&Descriptor{
		Names:      []string{"SAY", "MSG"},
		Restricted: true,
		Help:       []string{"SAY <target> <message> - speak as the bot"},
		Handler:    handleSay,
	})
	reg.Register(&Descriptor{
		Names:      []string{"OP", "DEOP"},
		Restricted: true,
		Help:       []string{"OP|DEOP [#channel] <nick...> - grant or remove channel operator"},
		Handler:    handleOpDeop,
	})
	reg.Register(&Descriptor{
		Names:      []string{"BAN", "KICK", "BANKICK", "KICKBAN"},
		Restricted: true,
		Help:       []string{"BAN|KICK|BANKICK [#channel] <nick> [reason] - remove a troublemaker"},
		Handler:    handleBanKick,
	})
	reg.Register(&Descriptor{
		Names:      []string{"NICK"},
		Restricted: true,
		Help:       []string{"NICK <newnick> - change the bot's nick"},
		Handler:    handleNick,
	})
	reg.Register(&Descriptor{
		Names:      []string{"RAW"},
		Restricted: true,
		Help:       []string{"RAW <line> - send a raw protocol line"},
		Handler:    handleRaw,
	})
	reg.Register(&Descriptor{
		Names:      []string{"QUIT"},
		Restricted: true,
		Help:       []string{"QUIT [message] - shut the bot down"},
		Handler:    handleQuit,
	})
	reg.Register(&Descriptor{
		Names:      []string{"USER"},
		Restricted: true,
		Help: []string{
			"USER ADD <name> <hostmask> - register a user",
			"USER DEL <name> - remove a user",
			"USER ADDHOST|DELHOST <name> <hostmask> - manage hostmasks",
			"USER ADDFLAG|DELFLAG <name> <flag> - manage permission flags",
			"USER LIST | USER INFO <name> | USER LOCATE <name> [place]",
		},
		Handler: handleUser,
	})
	reg.Register(&Descriptor{
		Names:      []string{"IGNORE", "UNIGNORE"},
		Restricted: true,
		Help:       []string{"IGNORE|UNIGNORE <name> - toggle the ignore flag on a user"},
		Handler:    handleIgnore,
	})
	reg.Register(&Descriptor{
		Names:   []string{"SETPASS"},
		Help:    []string{"SETPASS <password> - set your party-line password"},
		Handler: handleSetPass,
	})
	reg.Register(&Descriptor{
		Names:      []string{"AUTOOP"},
		Restricted: true,
		Help:       []string{"AUTOOP ON|OFF|STATUS|FLUSH <channel> - control the auto-op queue"},
		Handler:    handleAutoOp,
	})
	reg.Register(&Descriptor{
		Names:   []string{"JUMBLE"},
		Help:    []string{"JUMBLE [STOP] - start or stop a word jumble in the channel"},
		Handler: handleJumble,
	})
	reg.Register(&Descriptor{
		Names:   []string{"TITLE"},
		Help:    []string{"TITLE <url> - fetch a page title"},
		Handler: handleTitle,
	})
}

func handleHelp(ctx *Context, inv *Invocation) error {
	f := inv.Fields()
	if len(f) == 0 {
		inv.Reply("Commands: " + strings.Join(ctx.Commands.EnabledNames(), ", "))
		return nil
	}
	help := ctx.Commands.HelpFor(f[0])
	if help == nil {
		return Validationf("No help for %s", strings.ToUpper(f[0]))
	}
	for _, line := range help {
		inv.Reply(line)
	}
	return nil
}

func handleInfo(ctx *Context, inv *Invocation) error {
	uptime := time.Since(ctx.Started).Round(time.Second)
	inv.Reply(fmt.Sprintf("opal, IRC channel bot; up %s; %d registered users", uptime, ctx.Users.Count()))
	return nil
}

func handleWhoami(ctx *Context, inv *Invocation) error {
	if inv.Caller == nil {
		inv.Reply(fmt.Sprintf("You are %s, not a registered user.", inv.Hostmask))
		return nil
	}
	flags := make([]string, len(inv.Caller.Flags))
	for i, fl := range inv.Caller.Flags {
		flags[i] = string(fl)
	}
	if len(flags) == 0 {
		flags = []string{"none"}
	}
	inv.Reply(fmt.Sprintf("You are %s, registered as %s (flags: %s)", inv.Hostmask, inv.Caller.Name, strings.Join(flags, ",")))
	return nil
}

func handleJoin(ctx *Context, inv *Invocation) error {
	f := inv.Fields()
	if len(f) < 1 {
		return Usage("JOIN <channel> [key]")
	}
	if len(f) >= 2 {
		ctx.Client.SendRaw("JOIN " + f[0] + " " + f[1])
		return nil
	}
	ctx.Client.JoinChannel(f[0])
	return nil
}

func handlePart(ctx *Context, inv *Invocation) error {
	f := inv.Fields()
	if len(f) < 1 {
		return Usage("PART <channel>")
	}
	ctx.Client.PartChannel(f[0])
	return nil
}

func handleSay(ctx *Context, inv *Invocation) error {
	f := inv.Fields()
	if len(f) < 2 {
		return Usage("SAY <target> <message>")
	}
	// Tail keeps the message's internal spacing as typed.
	ctx.Client.SendMessage(f[0], inv.Tail(1))
	return nil
}

// channelArgs resolves the optional leading channel argument commands like
// OP and KICK accept. Falls back to the channel the command was typed in.
func channelArgs(inv *Invocation) (channel string, rest []string, err error) {
	f := inv.Fields()
	if len(f) > 0 && strings.HasPrefix(f[0], "#") {
		return f[0], f[1:], nil
	}
	if inv.Channel == "" {
		return "", nil, Validationf("Name a channel when using %s outside one", inv.Name)
	}
	return inv.Channel, f, nil
}

func handleOpDeop(ctx *Context, inv *Invocation) error {
	channel, nicks, err := channelArgs(inv)
	if err != nil {
		return err
	}
	if len(nicks) == 0 {
		return Usage(inv.Name + " [#channel] <nick...>")
	}

	sign := "+"
	if inv.Name == "DEOP" {
		sign = "-"
	}

	batch := ctx.Client.MaxModeTargets()
	if batch <= 0 {
		batch = 4
	}
	for start := 0; start < len(nicks); start += batch {
		end := start + batch
		if end > len(nicks) {
			end = len(nicks)
		}
		targets := nicks[start:end]
		ctx.Client.SetMode(channel, sign+strings.Repeat("o", len(targets)), targets...)
	}
	return nil
}

func handleBanKick(ctx *Context, inv *Invocation) error {
	channel, rest, err := channelArgs(inv)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return Usage(inv.Name + " [#channel] <nick> [reason]")
	}
	nick := rest[0]
	reason := strings.Join(rest[1:], " ")
	if reason == "" {
		reason = "requested by " + inv.Nick
	}

	if strings.Contains(inv.Name, "BAN") {
		ctx.Client.SetMode(channel, "+b", nick+"!*@*")
	}
	if strings.Contains(inv.Name, "KICK") {
		ctx.Client.Kick(channel, nick, reason)
	}
	return nil
}

func handleNick(ctx *Context, inv *Invocation) error {
	f := inv.Fields()
	if len(f) < 1 {
		return Usage("NICK <newnick>")
	}
	ctx.Client.ChangeNick(f[0])
	return nil
}

func handleRaw(ctx *Context, inv *Invocation) error {
	line := strings.TrimLeft(strings.Join(inv.Args, " "), " ")
	if line == "" {
		return Usage("RAW <line>")
	}
	ctx.Client.SendRaw(line)
	return nil
}

func handleQuit(ctx *Context, inv *Invocation) error {
	message := strings.TrimLeft(strings.Join(inv.Args, " "), " ")
	if message == "" {
		message = "requested by " + inv.Nick
	}
	ctx.Client.Quit(message)
	return nil
}

func handleUser(ctx *Context, inv *Invocation) error {
	f := inv.Fields()
	if len(f) == 0 {
		return Usage("USER ADD|DEL|ADDHOST|DELHOST|ADDFLAG|DELFLAG|LIST|INFO|LOCATE ...")
	}

	switch strings.ToUpper(f[0]) {
	case "ADD":
		if len(f) < 3 {
			return Usage("USER ADD <name> <hostmask>")
		}
		err := ctx.Users.Add(&user.User{Name: f[1], Hostmasks: []string{f[2]}})
		if errors.Is(err, user.ErrUserExists) {
			return Validationf("User already exists")
		}
		if err != nil {
			return err
		}
		inv.Reply(fmt.Sprintf("Added user %s (%s)", f[1], f[2]))
		return nil

	case "DEL":
		if len(f) < 2 {
			return Usage("USER DEL <name>")
		}
		err := ctx.Users.Delete(f[1])
		if errors.Is(err, user.ErrUnknownUser) {
			return Validationf("Unknown user")
		}
		if err != nil {
			return err
		}
		inv.Reply("Removed user " + f[1])
		return nil

	case "ADDHOST":
		if len(f) < 3 {
			return Usage("USER ADDHOST <name> <hostmask>")
		}
		u := ctx.Users.FindByName(f[1])
		if u == nil {
			return Validationf("Unknown user")
		}
		if u.HasHostmask(f[2]) {
			return Validationf("Hostmask already present")
		}
		u.Hostmasks = append(u.Hostmasks, f[2])
		if err := ctx.Users.Update(u); err != nil {
			return err
		}
		inv.Reply(fmt.Sprintf("Added hostmask %s to %s", f[2], f[1]))
		return nil

	case "DELHOST":
		if len(f) < 3 {
			return Usage("USER DELHOST <name> <hostmask>")
		}
		u := ctx.Users.FindByName(f[1])
		if u == nil {
			return Validationf("Unknown user")
		}
		if !u.HasHostmask(f[2]) {
			return Validationf("No such hostmask on %s", f[1])
		}
		if len(u.Hostmasks) == 1 {
			return Validationf("Cannot remove the last hostmask")
		}
		masks := u.Hostmasks[:0]
		for _, mask := range u.Hostmasks {
			if mask != f[2] {
				masks = append(masks, mask)
			}
		}
		u.Hostmasks = masks
		if err := ctx.Users.Update(u); err != nil {
			return err
		}
		inv.Reply(fmt.Sprintf("Removed hostmask %s from %s", f[2], f[1]))
		return nil

	case "ADDFLAG", "DELFLAG":
		if len(f) < 3 {
			return Usage("USER " + strings.ToUpper(f[0]) + " <name> <flag>")
		}
		flag, err := user.ParseFlag(f[2])
		if err != nil {
			return Validationf("Invalid flag: %s", f[2])
		}
		u := ctx.Users.FindByName(f[1])
		if u == nil {
			return Validationf("Unknown user")
		}
		var changed bool
		if strings.ToUpper(f[0]) == "ADDFLAG" {
			changed = u.AddFlag(flag)
		} else {
			changed = u.RemoveFlag(flag)
		}
		if !changed {
			return Validationf("No change for %s on %s", flag, f[1])
		}
		if err := ctx.Users.Update(u); err != nil {
			return err
		}
		inv.Reply(fmt.Sprintf("Flags for %s updated", f[1]))
		return nil

	case "LIST":
		users := ctx.Users.All()
		if len(users) == 0 {
			inv.Reply("No registered users.")
			return nil
		}
		names := make([]string, len(users))
		for i, u := range users {
			names[i] = u.Name
		}
		inv.Reply(fmt.Sprintf("Registered users (%d): %s", len(users), strings.Join(names, ", ")))
		return nil

	case "INFO":
		if len(f) < 2 {
			return Usage("USER INFO <name>")
		}
		u := ctx.Users.FindByName(f[1])
		if u == nil {
			return Validationf("Unknown user")
		}
		flags := make([]string, len(u.Flags))
		for i, fl := range u.Flags {
			flags[i] = string(fl)
		}
		if len(flags) == 0 {
			flags = []string{"none"}
		}
		inv.Reply(fmt.Sprintf("%s: hostmasks [%s] flags [%s]", u.Name, strings.Join(u.Hostmasks, ", "), strings.Join(flags, ",")))
		if u.Location != "" {
			inv.Reply(fmt.Sprintf("%s is in %s", u.Name, u.Location))
		}
		return nil

	case "LOCATE":
		if len(f) < 2 {
			return Usage("USER LOCATE <name> [place]")
		}
		u := ctx.Users.FindByName(f[1])
		if u == nil {
			return Validationf("Unknown user")
		}
		if len(f) == 2 {
			if u.Location == "" {
				inv.Reply(u.Name + " has no recorded location.")
				return nil
			}
			inv.Reply(fmt.Sprintf("%s is in %s", u.Name, u.Location))
			return nil
		}
		u.Location = strings.Join(f[2:], " ")
		if err := ctx.Users.Update(u); err != nil {
			return err
		}
		inv.Reply(fmt.Sprintf("Recorded %s in %s", u.Name, u.Location))
		return nil
	}

	return Usage("USER ADD|DEL|ADDHOST|DELHOST|ADDFLAG|DELFLAG|LIST|INFO|LOCATE ...")
}

func handleIgnore(ctx *Context, inv *Invocation) error {
	f := inv.Fields()
	if len(f) < 1 {
		return Usage(inv.Name + " <name>")
	}
	u := ctx.Users.FindByName(f[0])
	if u == nil {
		return Validationf("Unknown user")
	}

	if inv.Name == "IGNORE" {
		if u.Has(user.FlagAdmin) {
			return Validationf("Admins cannot be ignored")
		}
		if !u.AddFlag(user.FlagIgnore) {
			return Validationf("%s is already ignored", u.Name)
		}
	} else {
		if !u.RemoveFlag(user.FlagIgnore) {
			return Validationf("%s is not ignored", u.Name)
		}
	}
	if err := ctx.Users.Update(u); err != nil {
		return err
	}
	inv.Reply(fmt.Sprintf("%s: done", u.Name))
	return nil
}

func handleSetPass(ctx *Context, inv *Invocation) error {
	if inv.Caller == nil {
		return Validationf("You are not a registered user")
	}
	f := inv.Fields()
	if len(f) < 1 {
		return Usage("SETPASS <password>")
	}
	if inv.Source == SourcePublic {
		return Validationf("Set your password in a private message, not in the channel")
	}
	if err := inv.Caller.SetPassword(f[0]); err != nil {
		return err
	}
	if err := ctx.Users.Update(inv.Caller); err != nil {
		return err
	}
	inv.Reply("Password updated.")
	return nil
}

func handleAutoOp(ctx *Context, inv *Invocation) error {
	f := inv.Fields()
	if len(f) < 1 {
		return Usage("AUTOOP ON|OFF|STATUS|FLUSH <channel>")
	}
	switch strings.ToUpper(f[0]) {
	case "ON":
		ctx.AutoOps.SetEnabled(true)
		inv.Reply("Auto-op enabled.")
	case "OFF":
		ctx.AutoOps.SetEnabled(false)
		inv.Reply("Auto-op disabled.")
	case "STATUS":
		state := "off"
		if ctx.AutoOps.Enabled() {
			state = "on"
		}
		pending := ctx.AutoOps.PendingChannels()
		if len(pending) == 0 {
			inv.Reply("Auto-op is " + state + "; no pending queues.")
			return nil
		}
		for channel, nicks := range pending {
			inv.Reply(fmt.Sprintf("Auto-op is %s; %s pending: %s", state, channel, strings.Join(nicks, ", ")))
		}
	case "FLUSH":
		if len(f) < 2 {
			return Usage("AUTOOP FLUSH <channel>")
		}
		ctx.AutoOps.Flush(f[1])
		inv.Reply("Flushed " + f[1] + ".")
	default:
		return Usage("AUTOOP ON|OFF|STATUS|FLUSH <channel>")
	}
	return nil
}

func handleJumble(ctx *Context, inv *Invocation) error {
	if inv.Source != SourcePublic {
		return Validationf("JUMBLE only works in a channel")
	}
	f := inv.Fields()
	if len(f) > 0 && strings.EqualFold(f[0], "STOP") {
		if err := ctx.Games.Stop(inv.Channel); errors.Is(err, game.ErrNoGame) {
			return Validationf("No game is running here")
		}
		return nil
	}
	if err := ctx.Games.Start(inv.Channel); errors.Is(err, game.ErrGameRunning) {
		return Validationf("A game is already running here")
	}
	return nil
}

func handleTitle(ctx *Context, inv *Invocation) error {
	f := inv.Fields()
	if len(f) < 1 {
		return Usage("TITLE <url>")
	}
	title, err := ctx.Links.Fetch(f[0])
	if err != nil {
		return Validationf("Could not fetch a title for that URL")
	}
	inv.Reply("Title: " + title)
	return nil
}

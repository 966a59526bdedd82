package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	cl "syndicate/internal/cli"
	"syndicate/internal/config"
	"syndicate/internal/game"
	"syndicate/internal/syncq"
)

type app struct {
	apiBase string
	gameID  int64
}

func main() {
	cfg := config.LoadCLIFromEnv()
	setupColor(cfg.NoColor)
	a := &app{apiBase: cfg.APIBaseURL}

	root := &cobra.Command{
		Use:          "synd",
		Short:        "Syndicate game client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.apiBase, "api", cfg.APIBaseURL, "API base URL")
	root.PersistentFlags().Int64Var(&a.gameID, "game", 0, "game id (defaults to the one picked with `synd use`)")

	root.AddCommand(
		a.newLoginCmd(cfg.Token),
		a.newLogoutCmd(),
		a.newMeCmd(),
		a.newGamesCmd(),
		a.newUseCmd(),
		a.newJoinCmd(),
		a.newPlayerCmd(),
		a.newBankCmd(),
		a.newMarketCmd(),
		a.newPersonnelCmd(),
		a.newTurnsCmd(),
		a.newSyncCmd(),
		a.newAdminCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) client(sess cl.Session) *cl.Client {
	base := strings.TrimSpace(a.apiBase)
	if base == "" {
		base = sess.APIBaseURL
	}
	return cl.NewClient(strings.TrimRight(base, "/"))
}

func (a *app) session() (cl.Session, error) {
	sess, err := cl.LoadSession()
	if err != nil {
		return sess, fmt.Errorf("login required: %w", err)
	}
	return sess, nil
}

// currentGame is --game when given, else the game saved by `synd use`.
func (a *app) currentGame(sess cl.Session) (int64, error) {
	if a.gameID > 0 {
		return a.gameID, nil
	}
	if sess.GameID > 0 {
		return sess.GameID, nil
	}
	return 0, fmt.Errorf("no game selected, pass --game or run `synd use <game-id>`")
}

func timeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

// send performs an economy call. When the API cannot be reached the call is
// queued with its idempotency key for `synd sync`, and queued reports true.
func (a *app) send(cmd *cobra.Command, sess cl.Session, call cl.Call, out any) (queued bool, err error) {
	ctx, cancel := timeout(cmd)
	defer cancel()
	idem := uuid.NewString()
	err = a.client(sess).Send(ctx, sess.AccessToken, call, idem, out)
	if err == nil {
		return false, nil
	}
	if !cl.IsOffline(err) {
		return false, err
	}
	if qerr := syncq.Push(syncq.Command{
		Method:         call.Method,
		Path:           call.Path,
		Body:           call.Body,
		IdempotencyKey: idem,
	}); qerr != nil {
		return false, fmt.Errorf("api unreachable (%v) and queueing failed: %w", err, qerr)
	}
	printWarn("API unreachable. Command queued, run `synd sync` when back online.")
	return true, nil
}

func (a *app) newLoginCmd(envToken string) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token issued by the identity service",
		RunE: func(cmd *cobra.Command, args []string) error {
			token = strings.TrimSpace(token)
			if token == "" {
				token = envToken
			}
			if token == "" {
				var err error
				if token, err = promptSecret("Access token"); err != nil {
					return err
				}
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			user, err := cl.NewClient(a.apiBase).Me(ctx, token)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken: token,
				UserID:      user.ID,
				Username:    user.Username,
				APIBaseURL:  a.apiBase,
			}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Logged in as %s.", user.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "access token (read from SYND_TOKEN or prompted when empty)")
	return cmd
}

func (a *app) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear local session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func (a *app) newMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show your account and players",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			c := a.client(sess)
			user, err := c.Me(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			players, err := c.Players(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			printTitle("ACCOUNT")
			fmt.Printf("User:           %s\n", user.ID)
			fmt.Printf("Account turns:  %s\n", formatCount(user.Turns))
			if len(players) == 0 {
				printInfo("Not playing any game yet. Try `synd games`.")
				return nil
			}
			rows := make([][]string, 0, len(players))
			for _, p := range players {
				rows = append(rows, playerRow(p))
			}
			renderTable(playerHeaders, rows)
			return nil
		},
	}
}

var playerHeaders = []string{"GAME", "NAME", "CASH", "BANK", "ACTIVE", "RESERVE", "TRANSFERRED"}

func playerRow(p game.Player) []string {
	return []string{
		strconv.FormatInt(p.GameID, 10),
		truncate(p.Name, 24),
		formatMoney(p.MoneyCash),
		formatMoney(p.MoneyBank),
		formatCount(p.TurnsActive),
		formatCount(p.TurnsReserve),
		formatCount(p.TurnsTransferred),
	}
}

func (a *app) newGamesCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "games",
		Short: "List games",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			games, err := a.client(sess).ListGames(ctx, sess.AccessToken, status)
			if err != nil {
				return err
			}
			printTitle("GAMES")
			if len(games) == 0 {
				printInfo("No games found.")
				return nil
			}
			now := time.Now()
			rows := make([][]string, 0, len(games))
			for _, g := range games {
				left := "-"
				if g.Status == game.StatusActive {
					left = g.Remaining(now).Round(time.Hour).String()
				}
				rows = append(rows, []string{
					strconv.FormatInt(g.ID, 10),
					truncate(g.Name, 28),
					g.Status,
					g.StartAt.Local().Format("2006-01-02"),
					strconv.Itoa(g.LengthDays) + "d",
					left,
				})
			}
			renderTable([]string{"ID", "NAME", "STATUS", "START", "LENGTH", "LEFT"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (active, closing, complete)")
	return cmd
}

func (a *app) newUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <game-id>",
		Short: "Pick the game later commands act on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			gameID, err := parsePositive(args[0], "game id")
			if err != nil {
				return err
			}
			sess.GameID = gameID
			if err := cl.SaveSession(sess); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Now playing game %d.", gameID))
			return nil
		},
	}
}

func (a *app) newJoinCmd() *cobra.Command {
	var name string
	var location int64
	cmd := &cobra.Command{
		Use:   "join <game-id>",
		Short: "Join a game with a new player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			gameID, err := parsePositive(args[0], "game id")
			if err != nil {
				return err
			}
			if strings.TrimSpace(name) == "" {
				if name, err = promptRequired("Player name"); err != nil {
					return err
				}
			}
			var locationID *int64
			if location > 0 {
				locationID = &location
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			p, err := a.client(sess).Join(ctx, sess.AccessToken, gameID, name, locationID)
			if err != nil {
				return err
			}
			sess.GameID = gameID
			if err := cl.SaveSession(sess); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Joined game %d as %s.", gameID, p.Name))
			renderTable(playerHeaders, [][]string{playerRow(p)})
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "player name")
	cmd.Flags().Int64Var(&location, "location", 0, "starting location id")
	return cmd
}

func (a *app) newPlayerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "player",
		Short: "Show your player in the current game",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			gameID, err := a.currentGame(sess)
			if err != nil {
				return err
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			p, err := a.client(sess).Player(ctx, sess.AccessToken, gameID)
			if err != nil {
				return err
			}
			printTitle(fmt.Sprintf("%s (game %d)", p.Name, p.GameID))
			renderTable(playerHeaders, [][]string{playerRow(p)})
			return nil
		},
	}
}

func (a *app) newBankCmd() *cobra.Command {
	bank := &cobra.Command{
		Use:   "bank",
		Short: "Move money between cash and bank",
	}
	bank.AddCommand(&cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw the whole bank balance into cash",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.bankCall(cmd, func(gameID int64) (cl.Call, error) {
				return cl.WithdrawCall(gameID), nil
			})
		},
	})
	bank.AddCommand(&cobra.Command{
		Use:   "deposit <amount>",
		Short: "Deposit cash into an empty bank",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(args[0]), "$"))
			if err != nil || !amount.IsPositive() {
				return fmt.Errorf("invalid amount %q", args[0])
			}
			return a.bankCall(cmd, func(gameID int64) (cl.Call, error) {
				return cl.DepositCall(gameID, amount), nil
			})
		},
	})
	return bank
}

func (a *app) bankCall(cmd *cobra.Command, build func(gameID int64) (cl.Call, error)) error {
	sess, err := a.session()
	if err != nil {
		return err
	}
	gameID, err := a.currentGame(sess)
	if err != nil {
		return err
	}
	call, err := build(gameID)
	if err != nil {
		return err
	}
	var out game.Balances
	queued, err := a.send(cmd, sess, call, &out)
	if err != nil || queued {
		return err
	}
	fmt.Printf("Cash: %s   Bank: %s\n", formatMoney(out.MoneyCash), formatMoney(out.MoneyBank))
	return nil
}

func (a *app) newMarketCmd() *cobra.Command {
	var resourceType string
	market := &cobra.Command{
		Use:   "market",
		Short: "List market resources and prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			gameID, err := a.currentGame(sess)
			if err != nil {
				return err
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			list, err := a.client(sess).Market(ctx, sess.AccessToken, gameID, resourceType)
			if err != nil {
				return err
			}
			printTitle("MARKET")
			if len(list) == 0 {
				printInfo("Nothing for sale in this game.")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, r := range list {
				rows = append(rows, []string{
					strconv.FormatInt(r.ResourceID, 10),
					truncate(r.Name, 24),
					r.Type,
					formatMoney(r.BuyPrice),
					formatMoney(r.SellPrice),
					formatCount(r.PlayerQuantity),
				})
			}
			renderTable([]string{"ID", "NAME", "TYPE", "BUY", "SELL", "OWNED"}, rows)
			return nil
		},
	}
	market.Flags().StringVar(&resourceType, "type", "", "Items, Transports, Vehicles or Weapons")
	market.AddCommand(a.newTradeCmd("buy"), a.newTradeCmd("sell"))
	return market
}

func (a *app) marketOptions(cmd *cobra.Command, sess cl.Session, gameID int64) []namedResource {
	ctx, cancel := timeout(cmd)
	defer cancel()
	list, err := a.client(sess).Market(ctx, sess.AccessToken, gameID, "")
	if err != nil {
		return nil
	}
	out := make([]namedResource, len(list))
	for i, r := range list {
		out[i] = namedResource{ID: r.ResourceID, Name: r.Name}
	}
	return out
}

func (a *app) newTradeCmd(side string) *cobra.Command {
	return &cobra.Command{
		Use:   side + " <resource> <quantity>",
		Short: strings.ToUpper(side[:1]) + side[1:] + " market resources by id or name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			gameID, err := a.currentGame(sess)
			if err != nil {
				return err
			}
			qty, err := parsePositive(args[1], "quantity")
			if err != nil {
				return err
			}
			res, err := matchResource(args[0], a.marketOptions(cmd, sess, gameID))
			if err != nil {
				return err
			}
			call := cl.BuyCall(gameID, res.ID, qty)
			if side == "sell" {
				call = cl.SellCall(gameID, res.ID, qty)
			}
			var out game.TradeResult
			queued, err := a.send(cmd, sess, call, &out)
			if err != nil || queued {
				return err
			}
			label := res.Name
			if label == "" {
				label = fmt.Sprintf("resource %d", res.ID)
			}
			printSuccess(fmt.Sprintf("%s %s x%s. Now own %s, cash %s.",
				map[string]string{"buy": "Bought", "sell": "Sold"}[side],
				label, formatCount(qty), formatCount(out.PlayerQuantity), formatMoney(out.MoneyCash)))
			return nil
		},
	}
}

func (a *app) newPersonnelCmd() *cobra.Command {
	personnel := &cobra.Command{
		Use:     "personnel",
		Aliases: []string{"crew"},
		Short:   "List Associates and Enforcers",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			gameID, err := a.currentGame(sess)
			if err != nil {
				return err
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			list, err := a.client(sess).Personnel(ctx, sess.AccessToken, gameID)
			if err != nil {
				return err
			}
			printTitle("PERSONNEL")
			rows := make([][]string, 0, len(list))
			for _, r := range list {
				rows = append(rows, []string{
					strconv.FormatInt(r.ResourceID, 10),
					truncate(r.Name, 24),
					r.Type,
					r.RecruitMin.String() + "-" + r.RecruitMax.String(),
					formatMoney(r.DivestCost),
					formatCount(r.PlayerQuantity),
				})
			}
			renderTable([]string{"ID", "NAME", "TYPE", "PER TURN", "DIVEST", "OWNED"}, rows)
			return nil
		},
	}

	var turns int64
	recruit := &cobra.Command{
		Use:   "recruit <resource>...",
		Short: "Spend active turns recruiting personnel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			gameID, err := a.currentGame(sess)
			if err != nil {
				return err
			}
			if turns <= 0 {
				return fmt.Errorf("--turns must be greater than zero")
			}
			options := a.personnelOptions(cmd, sess, gameID)
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				res, err := matchResource(arg, options)
				if err != nil {
					return err
				}
				ids = append(ids, res.ID)
			}
			var out game.RecruitResult
			queued, err := a.send(cmd, sess, cl.RecruitCall(gameID, ids, turns), &out)
			if err != nil || queued {
				return err
			}
			for _, r := range out.Recruited {
				printSuccess(fmt.Sprintf("Recruited %s %s.", formatCount(r.Quantity), r.ResourceName))
			}
			fmt.Printf("Turns used: %s   Active: %s   Reserve: %s\n",
				formatCount(out.TurnsUsed), formatCount(out.Player.TurnsActive), formatCount(out.Player.TurnsReserve))
			return nil
		},
	}
	recruit.Flags().Int64Var(&turns, "turns", 0, "active turns to spend")

	divest := &cobra.Command{
		Use:   "divest <resource> <quantity>",
		Short: "Release personnel, paying half their value each",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			gameID, err := a.currentGame(sess)
			if err != nil {
				return err
			}
			qty, err := parsePositive(args[1], "quantity")
			if err != nil {
				return err
			}
			res, err := matchResource(args[0], a.personnelOptions(cmd, sess, gameID))
			if err != nil {
				return err
			}
			var out game.DivestResult
			queued, err := a.send(cmd, sess, cl.DivestCall(gameID, res.ID, qty), &out)
			if err != nil || queued {
				return err
			}
			fmt.Printf("Divested %s %s for %s. Cash now %s.\n",
				formatCount(out.QuantityDivested), out.ResourceName, colorizeMoney(out.CashReceived), formatMoney(out.Player.MoneyCash))
			return nil
		},
	}
	personnel.AddCommand(recruit, divest)
	return personnel
}

func (a *app) personnelOptions(cmd *cobra.Command, sess cl.Session, gameID int64) []namedResource {
	ctx, cancel := timeout(cmd)
	defer cancel()
	list, err := a.client(sess).Personnel(ctx, sess.AccessToken, gameID)
	if err != nil {
		return nil
	}
	out := make([]namedResource, len(list))
	for i, r := range list {
		out[i] = namedResource{ID: r.ResourceID, Name: r.Name}
	}
	return out
}

func (a *app) newTurnsCmd() *cobra.Command {
	turns := &cobra.Command{
		Use:   "turns",
		Short: "Move turns between account, reserve and active pools",
	}
	turns.AddCommand(&cobra.Command{
		Use:   "activate <amount>",
		Short: "Move turns from reserve to active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.turnsCall(cmd, args[0], cl.ActivateTurnsCall)
		},
	})
	turns.AddCommand(&cobra.Command{
		Use:   "reserve <amount>",
		Short: "Move turns from your account into this game's reserve",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.turnsCall(cmd, args[0], cl.ReserveTurnsCall)
		},
	})
	return turns
}

func (a *app) turnsCall(cmd *cobra.Command, arg string, build func(gameID, amount int64) cl.Call) error {
	sess, err := a.session()
	if err != nil {
		return err
	}
	gameID, err := a.currentGame(sess)
	if err != nil {
		return err
	}
	amount, err := parsePositive(arg, "amount")
	if err != nil {
		return err
	}
	ctx, cancel := timeout(cmd)
	defer cancel()
	queued, err := a.send(cmd, sess, build(gameID, amount), nil)
	if err != nil || queued {
		return err
	}
	p, err := a.client(sess).Player(ctx, sess.AccessToken, gameID)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Moved %s turns.", formatCount(amount)))
	renderTable(playerHeaders, [][]string{playerRow(p)})
	return nil
}

func (a *app) newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay economy commands queued while offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			queue, err := syncq.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			c := a.client(sess)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			results, err := syncq.Replay(ctx, func(ctx context.Context, q syncq.Command) error {
				err := c.Send(ctx, sess.AccessToken, cl.Call{Method: q.Method, Path: q.Path, Body: q.Body}, q.IdempotencyKey, nil)
				if cl.IsOffline(err) {
					return fmt.Errorf("%w: %v", syncq.ErrStop, err)
				}
				return err
			})
			if err != nil {
				return err
			}
			replayed := 0
			for _, r := range results {
				var apiErr *cl.APIError
				switch {
				case r.Err == nil:
					replayed++
				case errors.As(r.Err, &apiErr) && apiErr.Code == string(game.CodeDuplicateRequest):
					printInfo(fmt.Sprintf("Already applied: %s %s", r.Command.Method, r.Command.Path))
				default:
					printError(fmt.Sprintf("Rejected %s %s: %v", r.Command.Method, r.Command.Path, r.Err))
				}
			}
			remaining := len(queue) - len(results)
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d remaining=%d", replayed, remaining))
			return nil
		},
	}
}

func (a *app) newAdminCmd() *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Game administration (admin tokens only)",
	}

	var in game.CreateGameInput
	var bank string
	var setID int64
	create := &cobra.Command{
		Use:   "create-game <name>",
		Short: "Create a game and its partition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			in.Name = args[0]
			if in.StartingBank, err = decimal.NewFromString(bank); err != nil {
				return fmt.Errorf("invalid --bank %q", bank)
			}
			if setID > 0 {
				in.ResourceSetID = &setID
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			g, err := a.client(sess).CreateGame(ctx, sess.AccessToken, in)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Created game %d (%s), ends %s.", g.ID, g.Name, g.EndsAt().Local().Format(time.RFC1123)))
			return nil
		},
	}
	create.Flags().IntVar(&in.LengthDays, "days", 30, "round length in days")
	create.Flags().Int64Var(&in.StartingReserve, "reserve", 0, "reserve turns each new player starts with")
	create.Flags().StringVar(&bank, "bank", "0", "bank balance each new player starts with")
	create.Flags().Int64Var(&setID, "set", 0, "resource set sold in the market")

	remove := &cobra.Command{
		Use:   "delete-game <game-id>",
		Short: "Delete a game and drop its partition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			gameID, err := parsePositive(args[0], "game id")
			if err != nil {
				return err
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			if err := a.client(sess).DeleteGame(ctx, sess.AccessToken, gameID); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Deleted game %d.", gameID))
			return nil
		},
	}

	grant := &cobra.Command{
		Use:   "grant-turns <user-id> <amount>",
		Short: "Add turns to a user's account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			amount, err := parsePositive(args[1], "amount")
			if err != nil {
				return err
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			u, err := a.client(sess).GrantTurns(ctx, sess.AccessToken, args[0], amount)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("%s now has %s account turns.", u.ID, formatCount(u.Turns)))
			return nil
		},
	}

	admin.AddCommand(create, remove, grant)
	return admin
}

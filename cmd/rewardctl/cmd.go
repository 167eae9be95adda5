package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"connectrpc.com/connect"
	"github.com/gorilla/websocket"
	"golang.org/x/term"

	"github.com/Aayan-infotech/bitcoin-admin/internal/claimview"
	"github.com/Aayan-infotech/bitcoin-admin/internal/events"
	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
	"github.com/Aayan-infotech/bitcoin-admin/internal/settlement"
	"github.com/Aayan-infotech/bitcoin-admin/pkg/api"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	server     string
	httpClient connect.HTTPClient
	tokens     tokenFile
	in         *bufio.Reader
	out        io.Writer
	logger     *slog.Logger
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage: rewardctl [-server URL] [-token-file PATH] COMMAND [flags]")
	fmt.Fprintln(cli.out, "Commands:")
	fmt.Fprintln(cli.out, "  login -email EMAIL               - log in, the password is prompted")
	fmt.Fprintln(cli.out, "  logout                           - end the session")
	fmt.Fprintln(cli.out, "  whoami                           - show the logged-in operator")
	fmt.Fprintln(cli.out, "  claims                           - list pending reward claims")
	fmt.Fprintln(cli.out, "  approve -user ID [-amount N] [-yes] - pay out a pending claim")
	fmt.Fprintln(cli.out, "  send -user ID -amount N [-yes]   - transfer tokens to a user")
	fmt.Fprintln(cli.out, "  users [-page N] [-limit N]       - list users")
	fmt.Fprintln(cli.out, "  audit [-limit N]                 - show recent settlement attempts")
	fmt.Fprintln(cli.out, "  watch [-count N]                 - reprint claims as they are settled")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		cli.printUsage()
		return errHelp
	}

	switch args[0] {
	case "login":
		fs := cli.newFlagSet("login")
		email := fs.String("email", "", "The operator's email. The password will be prompted next.")
		if err := parse(fs, args[1:]); err != nil {
			return err
		}
		if *email == "" {
			fs.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			fs.Usage()
			return errHelp
		}
		return cli.login(ctx, *email, string(pwd))

	case "logout":
		return cli.logout(ctx)

	case "whoami":
		return cli.whoami(ctx)

	case "claims":
		token, err := cli.tokens.load()
		if err != nil {
			return err
		}
		return explain(cli.printClaims(ctx, cli.claimsClient(token)))

	case "approve":
		fs := cli.newFlagSet("approve")
		user := fs.String("user", "", "The user whose claim is paid out.")
		amount := fs.String("amount", "", "Amount to pay. Defaults to the claim's total score.")
		yes := fs.Bool("yes", false, "Skip the confirmation prompt.")
		if err := parse(fs, args[1:]); err != nil {
			return err
		}
		if *user == "" {
			fs.Usage()
			return errHelp
		}
		return cli.approve(ctx, *user, *amount, *yes)

	case "send":
		fs := cli.newFlagSet("send")
		user := fs.String("user", "", "The receiving user.")
		amount := fs.String("amount", "", "Amount to transfer.")
		yes := fs.Bool("yes", false, "Skip the confirmation prompt.")
		if err := parse(fs, args[1:]); err != nil {
			return err
		}
		if *user == "" || *amount == "" {
			fs.Usage()
			return errHelp
		}
		return cli.send(ctx, *user, *amount, *yes)

	case "users":
		fs := cli.newFlagSet("users")
		page := fs.Int("page", 1, "Page number.")
		limit := fs.Int("limit", 10, "Users per page.")
		if err := parse(fs, args[1:]); err != nil {
			return err
		}
		return cli.users(ctx, *page, *limit)

	case "audit":
		fs := cli.newFlagSet("audit")
		limit := fs.Int("limit", 20, "Number of entries.")
		if err := parse(fs, args[1:]); err != nil {
			return err
		}
		return cli.audit(ctx, *limit)

	case "watch":
		fs := cli.newFlagSet("watch")
		count := fs.Int("count", 0, "Exit after this many settlements. 0 watches until interrupted.")
		if err := parse(fs, args[1:]); err != nil {
			return err
		}
		return cli.watch(ctx, *count)

	default:
		cli.printUsage()
		return errHelp
	}
}

func parse(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		return errHelp
	}
	return err
}

func (cli *commandLine) authClient(token string) api.AuthServiceClient {
	var opts []connect.ClientOption
	if token != "" {
		opts = append(opts, connect.WithInterceptors(bearer(token)))
	}
	return api.NewAuthServiceClient(cli.httpClient, cli.server, opts...)
}

func (cli *commandLine) claimsClient(token string) api.ClaimServiceClient {
	return api.NewClaimServiceClient(cli.httpClient, cli.server, connect.WithInterceptors(bearer(token)))
}

func (cli *commandLine) login(ctx context.Context, email, password string) error {
	resp, err := cli.authClient("").Login(ctx, connect.NewRequest(&api.LoginRequest{
		Email:    email,
		Password: password,
	}))
	if err != nil {
		if connect.CodeOf(err) == connect.CodeUnauthenticated {
			return errors.New("invalid email or password")
		}
		return err
	}

	if err := cli.tokens.save(resp.Msg.Token); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Logged in as %s, session expires %s\n",
		resp.Msg.Operator.Email, resp.Msg.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

func (cli *commandLine) logout(ctx context.Context) error {
	token, err := cli.tokens.load()
	if errors.Is(err, errNotLoggedIn) {
		fmt.Fprintln(cli.out, "Not logged in.")
		return nil
	}
	if err != nil {
		return err
	}

	_, err = cli.authClient(token).Logout(ctx, connect.NewRequest(&api.LogoutRequest{}))
	if err != nil && connect.CodeOf(err) != connect.CodeUnauthenticated {
		// The local token is dropped regardless.
		cli.logger.Warn("Server logout failed", "error", err)
	}
	if err := cli.tokens.clear(); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Logged out.")
	return nil
}

func (cli *commandLine) whoami(ctx context.Context) error {
	token, err := cli.tokens.load()
	if err != nil {
		return err
	}
	resp, err := cli.authClient(token).GetCurrentOperator(ctx, connect.NewRequest(&api.GetCurrentOperatorRequest{}))
	if err != nil {
		return explain(err)
	}
	op := resp.Msg.Operator
	fmt.Fprintf(cli.out, "%s <%s>, session expires %s\n", op.Name, op.Email,
		resp.Msg.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

func (cli *commandLine) printClaims(ctx context.Context, client api.ClaimServiceClient) error {
	resp, err := client.ListClaims(ctx, connect.NewRequest(&api.ListClaimsRequest{}))
	if err != nil {
		return err
	}
	if len(resp.Msg.Claims) == 0 {
		fmt.Fprintln(cli.out, "No pending claims.")
		return nil
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tNAME\tTOTAL\tATTEMPTS\tLATEST\tSTATUS")
	for _, c := range resp.Msg.Claims {
		latest := "-"
		if c.LatestAttemptAt != nil {
			latest = c.LatestAttemptAt.Local().Format(time.DateTime)
		}
		status := "pending"
		if c.InFlight {
			status = "settling"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			c.UserID, orDash(c.UserDisplayName), c.TotalScore.String(), c.AttemptCount, latest, status)
	}
	return w.Flush()
}

func (cli *commandLine) approve(ctx context.Context, userID, amount string, yes bool) error {
	token, err := cli.tokens.load()
	if err != nil {
		return err
	}

	remote := &remoteClaims{client: cli.claimsClient(token)}
	view := claimview.New(remote, remote, cli.logger)
	view.OnSettled(func(string) {
		if err := view.Refresh(ctx); err != nil {
			cli.logger.Warn("Claim refresh after approval failed", "error", err)
		}
	})

	if err := view.Refresh(ctx); err != nil {
		return explain(err)
	}
	if err := view.Open(userID); err != nil {
		if errors.Is(err, claimview.ErrUnknownClaim) {
			return fmt.Errorf("no pending claim for user %q", userID)
		}
		return err
	}
	if amount != "" {
		if err := view.SetAmount(amount); err != nil {
			return err
		}
	}

	v := view.View()
	prompt := fmt.Sprintf("Pay %s to %s for %d pending attempts (total score %s)?",
		v.Amount, displayName(v.Selected), v.Selected.AttemptCount, v.Selected.TotalScore.String())
	if !yes && !cli.confirm(prompt) {
		view.Cancel()
		fmt.Fprintln(cli.out, "Cancelled.")
		return nil
	}

	if err := view.Confirm(ctx); err != nil {
		return explain(err)
	}
	fmt.Fprintf(cli.out, "Paid %s to %s. %d claims still pending.\n",
		v.Amount, displayName(v.Selected), len(view.View().Claims))
	return nil
}

func (cli *commandLine) send(ctx context.Context, userID, amount string, yes bool) error {
	if _, err := settlement.ParseAmount(amount); err != nil {
		return err
	}
	token, err := cli.tokens.load()
	if err != nil {
		return err
	}

	if !yes && !cli.confirm(fmt.Sprintf("Transfer %s to %s?", amount, userID)) {
		fmt.Fprintln(cli.out, "Cancelled.")
		return nil
	}

	resp, err := cli.claimsClient(token).SendReward(ctx, connect.NewRequest(&api.SendRewardRequest{
		UserID: userID,
		Amount: amount,
	}))
	if err != nil {
		return explain(err)
	}
	fmt.Fprintf(cli.out, "Transferred %s to %s.\n", resp.Msg.Settlement.Amount.String(), resp.Msg.Settlement.UserID)
	return nil
}

func (cli *commandLine) users(ctx context.Context, page, limit int) error {
	token, err := cli.tokens.load()
	if err != nil {
		return err
	}
	resp, err := cli.claimsClient(token).ListUsers(ctx, connect.NewRequest(&api.ListUsersRequest{
		Page:  page,
		Limit: limit,
	}))
	if err != nil {
		return explain(err)
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tWALLET")
	for _, u := range resp.Msg.Users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, orDash(u.Name), orDash(u.Email), orDash(u.WalletAddress))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Page %d of %d\n", resp.Msg.Page, resp.Msg.TotalPages)
	return nil
}

func (cli *commandLine) audit(ctx context.Context, limit int) error {
	token, err := cli.tokens.load()
	if err != nil {
		return err
	}
	resp, err := cli.claimsClient(token).ListAuditEntries(ctx, connect.NewRequest(&api.ListAuditEntriesRequest{
		Limit: limit,
	}))
	if err != nil {
		return explain(err)
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tOPERATOR\tKIND\tUSER\tAMOUNT\tOUTCOME\tERROR")
	for _, e := range resp.Msg.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.OperatorEmail, e.Kind, e.UserID,
			e.Amount.String(), e.Outcome, orDash(e.Error))
	}
	return w.Flush()
}

// watch prints the claim list, then reprints it whenever the server reports
// a settlement. count > 0 stops after that many settlements.
func (cli *commandLine) watch(ctx context.Context, count int) error {
	token, err := cli.tokens.load()
	if err != nil {
		return err
	}

	u, err := eventsURL(cli.server, token)
	if err != nil {
		return err
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return errNotLoggedIn
		}
		return fmt.Errorf("failed to connect to event stream: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	claims := cli.claimsClient(token)
	if err := cli.printClaims(ctx, claims); err != nil {
		return explain(err)
	}

	seen := 0
	for count == 0 || seen < count {
		var ev events.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("event stream closed: %w", err)
		}
		if ev.Type != events.TypeClaimsInvalidated {
			continue
		}
		seen++

		fmt.Fprintf(cli.out, "\nSettled %s at %s\n", ev.UserID, ev.At.Local().Format(time.DateTime))
		if err := cli.printClaims(ctx, claims); err != nil {
			return explain(err)
		}
	}
	return nil
}

func eventsURL(server, token string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/events"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

func (cli *commandLine) confirm(prompt string) bool {
	fmt.Fprintf(cli.out, "%s [y/N] ", prompt)
	line, err := cli.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// explain turns server errors into messages for the operator.
func explain(err error) error {
	if err == nil {
		return nil
	}
	var fetchErr *claimview.FetchError
	if errors.As(err, &fetchErr) {
		err = fetchErr.Err
	}

	switch connect.CodeOf(err) {
	case connect.CodeUnauthenticated:
		return errNotLoggedIn
	case connect.CodeAborted:
		return errors.New("a settlement for this user is already in progress")
	case connect.CodeNotFound:
		return errors.New("the claim is no longer pending")
	case connect.CodeInvalidArgument, connect.CodeUnavailable:
		var connectErr *connect.Error
		if errors.As(err, &connectErr) {
			return errors.New(connectErr.Message())
		}
	}
	return err
}

func displayName(c models.AggregatedClaim) string {
	if c.UserDisplayName != "" {
		return c.UserDisplayName
	}
	return c.UserID
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Command hearthview is a terminal client for the Hearth
// property-listing platform.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hearthlabs/hearthview/internal/api"
	"github.com/hearthlabs/hearthview/internal/config"
	"github.com/hearthlabs/hearthview/internal/event"
	"github.com/hearthlabs/hearthview/internal/guard"
	"github.com/hearthlabs/hearthview/internal/listcache"
	"github.com/hearthlabs/hearthview/internal/paging"
	"github.com/hearthlabs/hearthview/internal/query"
	"github.com/hearthlabs/hearthview/internal/savedsearch"
	"github.com/hearthlabs/hearthview/internal/session"
	"github.com/hearthlabs/hearthview/internal/store"
	"github.com/hearthlabs/hearthview/internal/vault"
	"github.com/hearthlabs/hearthview/internal/version"
	"github.com/hearthlabs/hearthview/pkg/models"
)

const usage = `usage: hearthview [-config path] [-verbose] <command> [flags]

commands:
  search          browse listings with filters
  login           authenticate and persist the session
  logout          end the session
  whoami          show the current session
  dashboard       seller dashboard (sellers and admins only)
  interest        submit an interest form for a listing
  review          submit a review for a listing
  save-search     store the given filters under a name
  searches        list saved searches
  export-searches write saved searches as YAML to stdout
  ping            check backend reachability and API compatibility
  version         print build information
`

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if args[0] == "version" {
		fmt.Println(version.Info())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	app, err := newApp(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize client", zap.Error(err))
	}
	defer app.Close()

	ctx := context.Background()
	if err := app.run(ctx, args[0], args[1:]); err != nil {
		logger.Error("command failed", zap.String("command", args[0]), zap.Error(err))
		fmt.Fprintln(os.Stderr, "hearthview:", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// app wires the client core: one bus, one transport, one cache, one
// session store. The cache and session store are the only writers of
// their own state; commands dispatch intents.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	bus      *event.MemoryBus
	client   *api.Client
	cache    *listcache.Cache[*models.PropertyPage]
	sessions *session.Store
	vault    *vault.Vault
	unwatch  func()
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	bus := event.NewBus(logger.Named("bus"))

	client, err := api.New(api.Config{
		BaseURL:   cfg.GetString("api.base_url"),
		Timeout:   cfg.GetDuration("api.timeout"),
		RateLimit: cfg.GetFloat64("api.rate_limit"),
		RateBurst: cfg.GetInt("api.rate_burst"),
	}, bus, logger.Named("api"))
	if err != nil {
		return nil, err
	}

	cache := listcache.New[*models.PropertyPage](listcache.Config{
		FreshFor: cfg.GetDuration("cache.fresh_ttl"),
		GraceFor: cfg.GetDuration("cache.grace_ttl"),
	}, logger.Named("cache"), listcache.NewMetrics(prometheus.DefaultRegisterer))
	unwatch := cache.WatchBus(bus)

	sessions := session.NewStore(client, bus, logger.Named("session"))

	v := vault.New(cfg.GetString("vault.path"), cfg.GetString("vault.key"), logger.Named("vault"))
	cookies, err := v.LoadCookies()
	if err != nil {
		// A broken vault never blocks the CLI; the user just logs in again.
		logger.Warn("could not restore persisted session", zap.Error(err))
	}
	if len(cookies) > 0 {
		client.SetCookies(cookies)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		bus:      bus,
		client:   client,
		cache:    cache,
		sessions: sessions,
		vault:    v,
		unwatch:  unwatch,
	}, nil
}

func (a *app) Close() {
	a.unwatch()
	a.sessions.Close()
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "search":
		return a.cmdSearch(ctx, args)
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		return a.cmdLogout(ctx)
	case "whoami":
		return a.cmdWhoami(ctx)
	case "dashboard":
		return a.cmdDashboard(ctx)
	case "interest":
		return a.cmdInterest(ctx, args)
	case "review":
		return a.cmdReview(ctx, args)
	case "save-search":
		return a.cmdSaveSearch(ctx, args)
	case "searches":
		return a.cmdSearches(ctx)
	case "export-searches":
		return a.cmdExportSearches(ctx)
	case "ping":
		return a.cmdPing(ctx)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// filterFlags declares the shared search filter flags on fs and returns
// a closure producing the raw input they describe.
func filterFlags(fs *flag.FlagSet) func() query.Input {
	location := fs.String("location", "", "location text")
	propType := fs.String("type", "", "property type (house, apartment, condo, townhouse, land)")
	minPrice := fs.String("min-price", "", "minimum price in cents")
	maxPrice := fs.String("max-price", "", "maximum price in cents")
	beds := fs.String("beds", "", "minimum bedrooms")
	baths := fs.String("baths", "", "minimum bathrooms")
	verified := fs.Bool("verified", false, "verified listings only")
	sortKey := fs.String("sort", "", "sort key (newest, price_asc, price_desc)")
	page := fs.Int("page", 1, "page number")
	size := fs.Int("size", query.DefaultPageSize, "page size")

	return func() query.Input {
		return query.Input{
			Location:     *location,
			Type:         *propType,
			MinPrice:     *minPrice,
			MaxPrice:     *maxPrice,
			Bedrooms:     *beds,
			Bathrooms:    *baths,
			VerifiedOnly: *verified,
			Sort:         *sortKey,
			Page:         *page,
			PageSize:     *size,
		}
	}
}

func (a *app) cmdSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	input := filterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	f := query.Normalize(input())
	page, err := a.cache.Get(ctx, f.Key(), func(ctx context.Context) (*models.PropertyPage, error) {
		return a.client.ListProperties(ctx, f)
	})
	if err != nil {
		if page == nil {
			return err
		}
		// Last-good data stays on screen under the error.
		fmt.Fprintln(os.Stderr, "warning: showing cached results:", err)
	}

	pages := paging.New(f.PageSize)
	pages.Page = page.PageInfo.Page
	pages.SetTotal(page.PageInfo.Total)

	for _, p := range page.Properties {
		fmt.Printf("%-10s  %-28s  %-16s  $%d.%02d  %db/%dba%s\n",
			p.ID, truncate(p.Title, 28), truncate(p.Location, 16),
			p.Price/100, p.Price%100, p.Bedrooms, p.Bathrooms,
			verifiedTag(p.Verified),
		)
	}
	fmt.Printf("page %d of %d (%d listings)\n", pages.Page, pages.TotalPages, pages.Total)
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("login requires -email and -password")
	}

	snap, err := a.sessions.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := a.vault.SaveCookies(a.client.Cookies()); err != nil {
		a.logger.Warn("could not persist session", zap.Error(err))
	}
	fmt.Printf("logged in as %s (%s)\n", snap.User.Name, snap.User.Role)
	return nil
}

func (a *app) cmdLogout(ctx context.Context) error {
	if err := a.vault.Clear(); err != nil {
		a.logger.Warn("could not clear persisted session", zap.Error(err))
	}
	if err := a.sessions.Logout(ctx); err != nil {
		// Client state is already anonymous; report and move on.
		fmt.Fprintln(os.Stderr, "warning: server logout failed:", err)
	}
	fmt.Println("logged out")
	return nil
}

func (a *app) cmdWhoami(ctx context.Context) error {
	snap, err := a.sessions.Current(ctx)
	if err != nil {
		return err
	}
	if !snap.Authenticated() {
		fmt.Println("not logged in")
		return nil
	}
	fmt.Printf("%s <%s> role=%s\n", snap.User.Name, snap.User.Email, snap.User.Role)
	return nil
}

func (a *app) cmdDashboard(ctx context.Context) error {
	snap, err := a.sessions.Current(ctx)
	if err != nil {
		return err
	}

	switch guard.Check(snap, guard.RequireAny(models.RoleSeller, models.RoleAdmin)) {
	case guard.DenyUnauthenticated:
		return fmt.Errorf("not logged in: run `hearthview login` first")
	case guard.DenyUnauthorized:
		return fmt.Errorf("role %q may not view the seller dashboard", snap.Role())
	}

	stats, err := a.client.SellerStats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("active listings: %d\nviews: %d\ninterests: %d\naverage rating: %.1f\n",
		stats.ActiveListings, stats.TotalViews, stats.Interests, stats.AverageRating)
	return nil
}

func (a *app) cmdInterest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("interest", flag.ContinueOnError)
	property := fs.String("property", "", "property ID")
	name := fs.String("name", "", "your name")
	email := fs.String("email", "", "contact email")
	phone := fs.String("phone", "", "contact phone")
	message := fs.String("message", "", "message to the seller")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *property == "" || *name == "" || *email == "" {
		return fmt.Errorf("interest requires -property, -name, and -email")
	}

	err := a.client.SubmitInterest(ctx, models.Interest{
		PropertyID: *property,
		Name:       *name,
		Email:      *email,
		Phone:      *phone,
		Message:    *message,
	})
	if err != nil {
		return err
	}
	fmt.Println("interest submitted")
	return nil
}

func (a *app) cmdReview(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("review", flag.ContinueOnError)
	property := fs.String("property", "", "property ID")
	rating := fs.Int("rating", 0, "rating 1-5")
	comment := fs.String("comment", "", "review text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *property == "" {
		return fmt.Errorf("review requires -property")
	}

	review, err := a.client.SubmitReview(ctx, *property, models.ReviewDraft{
		Rating:  *rating,
		Comment: *comment,
	})
	if err != nil {
		return err
	}
	fmt.Printf("review %s submitted\n", review.ID)
	return nil
}

func (a *app) cmdSaveSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("save-search", flag.ContinueOnError)
	name := fs.String("name", "", "name for the saved search")
	input := filterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("save-search requires -name")
	}

	repo, closeRepo, err := a.openSearches(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	saved, err := repo.Save(ctx, *name, query.Normalize(input()))
	if err != nil {
		return err
	}
	fmt.Printf("saved %q (%s)\n", saved.Name, saved.Filter.Key())
	return nil
}

func (a *app) cmdSearches(ctx context.Context) error {
	repo, closeRepo, err := a.openSearches(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	searches, err := repo.List(ctx)
	if err != nil {
		return err
	}
	for _, s := range searches {
		fmt.Printf("%-20s  %s\n", s.Name, s.Filter.Key())
	}
	return nil
}

func (a *app) cmdExportSearches(ctx context.Context) error {
	repo, closeRepo, err := a.openSearches(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	return savedsearch.ExportYAML(ctx, repo, os.Stdout)
}

func (a *app) cmdPing(ctx context.Context) error {
	server, err := a.client.Health(ctx)
	if err != nil {
		return err
	}
	if !version.Compatible(server) {
		return fmt.Errorf("server API %s is older than the minimum supported %s", server, version.MinServerVersion)
	}
	fmt.Printf("ok: server API %s\n", server)
	return nil
}

func (a *app) openSearches(ctx context.Context) (savedsearch.Repository, func(), error) {
	st, err := store.New(a.cfg.GetString("store.path"))
	if err != nil {
		return nil, nil, err
	}
	repo, err := savedsearch.NewSQLiteRepository(ctx, st)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return repo, func() { st.Close() }, nil
}

// truncate shortens s to at most n display runes. Slicing runes, not
// bytes, so a multi-byte title or location never yields invalid UTF-8.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func verifiedTag(v bool) string {
	if v {
		return "  [verified]"
	}
	return ""
}

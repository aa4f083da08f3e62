//go:generate go run github.com/Songmu/gocredits/cmd/gocredits@v0.3.0 -w
package main

import (
	"context"
	_ "embed"
	"flag"
	"log"
	"net/url"
	"path"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	kcf "github.com/omniphi/orchestrator/pkg/configs/frontend"
	omnidb "github.com/omniphi/orchestrator/pkg/domain/omniphi/db"
	kpg "github.com/omniphi/orchestrator/pkg/domain/omniphi/db/postgres"
	"github.com/omniphi/orchestrator/pkg/echoutil"
	"github.com/omniphi/orchestrator/pkg/utils/filewatch"
	kstrings "github.com/omniphi/orchestrator/pkg/utils/strings"

	"github.com/omniphi/orchestrator/cmd/omnid/handlers"
)

//go:embed CREDITS
var CREDITS string

func main() {

	configPath := flag.String("config-path", "", "frontend config path")
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	pcert := flag.String("cert", "", "certification file for TLS")
	pkey := flag.String("certkey", "", "key of certification file for TLS")
	plic := flag.Bool("license", false, "show licenses of dependencies")
	flag.Parse()

	if *plic {
		log.Println(CREDITS)
		return
	}

	e := echo.New()
	e.Pre(middleware.AddTrailingSlash())

	// set log
	echoutil.SetLevel(e, *loglevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	e.Use(echoutil.LogHandlerFunc)

	// read configfile
	conf, err := kcf.LoadFrontendConfig(*configPath)
	if err != nil {
		log.Fatalf("can not read configration: %s", err)
	}

	{
		// quit on config updates, to be restarted with the new content.
		ctx, cancel, err := filewatch.UntilModifyContext(context.Background(), *configPath)
		if err != nil {
			log.Fatalf("can not watch configration: %s", err)
		}
		defer cancel()
		context.AfterFunc(ctx, func() {
			log.Println("config file is updated. quit to restart server.")
			graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := e.Shutdown(graceful); err != nil {
				log.Printf("error on shutdown by config update: %s", err)
			}
		})
	}

	api, err := root("/api")
	if err != nil {
		log.Fatalf("api root /api is invalid url or path: %s", err)
	}

	// get dbaccesor
	ctx := context.Background()
	db, err := getDBAccesor(ctx, conf.DBURI)
	if err != nil {
		log.Fatalf("can not connect to database: %s", err.Error())
	}
	defer db.Close()

	// handlers
	{
		e.POST(api("setups"), handlers.SetupRegisterHandler(db.Setup()))
		e.GET(api("setups"), handlers.FindSetupHandler(db.Setup()))

		e.GET(api("setups/:setupId/"), handlers.GetSetupHandler(db.Setup()))
		e.POST(
			api("setups/:setupId/provision"),
			handlers.ProvisionSetupHandler(db.Setup(), db.Order(), "setupId"),
		)
	}

	{
		e.GET(api("orders/:correlationId/"), handlers.GetOrderHandler(db.Order()))
	}

	{
		e.GET(api("nodes"), handlers.FindNodeHandler(db.Node()))
		e.GET(api("nodes/:nodeId/"), handlers.GetNodeHandler(db.Node()))
	}

	log.Println("registred routes:")
	for _, r := range e.Routes() {
		log.Println(r.Method, r.Path)
	}

	cert, key := *pcert, *pkey
	if cert != "" && key != "" {
		e.Logger.Fatal(e.StartTLS(":"+conf.ServerPort, cert, key))
	} else {
		e.Logger.Fatal(e.Start(":" + conf.ServerPort))
	}
}

func getDBAccesor(ctx context.Context, dburi string) (omnidb.OmniDatabase, error) {
	return kpg.New(ctx, dburi)
}

// create api URL factory
//
// args:
//   - root: api root path
//
// return:
// - func: it receive relative path from root, and returns full-path of URL.
func root(r string) (func(...string) string, error) {
	b, err := url.Parse(r)
	if err != nil {
		return nil, err
	}
	base := b.Path

	return func(s ...string) string {
		parts := make([]string, len(s)+1)
		parts[0] = base
		copy(parts[1:], s)
		p := path.Join(parts...)
		p = kstrings.TrimPrefixAll(p, "/")

		return kstrings.EnsureSuffix("/"+p, "/")
	}, nil
}

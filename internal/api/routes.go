package api

import (
	"fmt"

	"gavel/internal/house"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

func InitializeRoutes(app *fiber.App, h *house.House) {
	app.Get("/v1/auctions", GetAuctions(h))
	app.Post("/v1/auctions", CreateAuction(h))
	app.Get("/v1/auctions/:id", GetAuctionByID(h))
	app.Post("/v1/auctions/:id/start", StartAuction(h))
	app.Post("/v1/auctions/:id/close", CloseAuction(h))
	app.Post("/v1/auctions/:id/bids", PlaceBid(h))
	app.Get("/v1/auctions/:id/book", GetOrderBook(h))
	app.Get("/v1/auctions/:id/depth", GetPriceDepth(h))
	app.Get("/v1/auctions/:id/top", GetTopBid(h))
	app.Get("/v1/orders/:id", GetOrderByID(h))
}

// API serves the auction admin and market data routes over HTTP.
type API struct {
	app *fiber.App
}

func New(h *house.House) *API {
	app := fiber.New(fiber.Config{
		AppName: "gavel",
	})
	InitializeRoutes(app, h)
	return &API{app: app}
}

func (a *API) App() *fiber.App {
	return a.app
}

// Serve listens on address until the tomb starts dying.
func (a *API) Serve(t *tomb.Tomb, address string) error {
	t.Go(func() error {
		<-t.Dying()
		if err := a.app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("unable to shut down http api")
		}
		return nil
	})

	log.Info().Str("address", address).Msg("http api running")
	err := a.app.Listen(address, fiber.ListenConfig{
		DisableStartupMessage: true,
	})
	if err != nil {
		select {
		case <-t.Dying():
			return nil
		default:
		}
		return fmt.Errorf("http api stopped: %w", err)
	}
	return nil
}

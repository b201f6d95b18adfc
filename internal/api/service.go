package api

import (
	"errors"
	"strconv"

	"gavel/internal/auction"
	"gavel/internal/house"
	"gavel/internal/ledger"
	"gavel/internal/utils"

	"github.com/gofiber/fiber/v3"
)

func errorResponse(c fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// houseError maps house failures onto HTTP statuses.
func houseError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, house.ErrUnknownAuction):
		return errorResponse(c, fiber.StatusNotFound, err)
	case errors.Is(err, auction.ErrInvalidConfig):
		return errorResponse(c, fiber.StatusUnprocessableEntity, err)
	case errors.Is(err, auction.ErrInvalidTransition):
		return errorResponse(c, fiber.StatusConflict, err)
	default:
		return err
	}
}

func CreateAuction(h *house.House) fiber.Handler {
	return func(c fiber.Ctx) error {
		// Parse create auction schema
		var schema = CreateAuctionSchema{}
		if err := c.Bind().Body(&schema); err != nil {
			return fiber.ErrBadRequest
		}
		if err := utils.ValidateInput(&schema); err != nil {
			return errorResponse(c, fiber.StatusUnprocessableEntity, err)
		}

		id, err := h.Open(schema.config())
		if err != nil {
			return houseError(c, err)
		}
		if schema.Start {
			if err := h.Start(id); err != nil {
				return houseError(c, err)
			}
		}

		view, err := h.Auction(id)
		if err != nil {
			return houseError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(view)
	}
}

func GetAuctions(h *house.House) fiber.Handler {
	return func(c fiber.Ctx) error {
		ids := h.AuctionIDs()
		return c.JSON(AuctionListSchema{Items: ids, Total: len(ids)})
	}
}

func GetAuctionByID(h *house.House) fiber.Handler {
	return func(c fiber.Ctx) error {
		view, err := h.Auction(c.Params("id"))
		if err != nil {
			return houseError(c, err)
		}
		return c.JSON(view)
	}
}

func StartAuction(h *house.House) fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Params("id")
		if err := h.Start(id); err != nil {
			return houseError(c, err)
		}

		view, err := h.Auction(id)
		if err != nil {
			return houseError(c, err)
		}
		return c.JSON(view)
	}
}

func CloseAuction(h *house.House) fiber.Handler {
	return func(c fiber.Ctx) error {
		outcome, err := h.Close(c.Params("id"))
		if err != nil {
			return houseError(c, err)
		}
		return c.JSON(outcome)
	}
}

func PlaceBid(h *house.House) fiber.Handler {
	return func(c fiber.Ctx) error {
		var bid = PlaceBidSchema{}
		if err := c.Bind().Body(&bid); err != nil {
			return fiber.ErrBadRequest
		}
		if err := utils.ValidateInput(&bid); err != nil {
			return errorResponse(c, fiber.StatusUnprocessableEntity, err)
		}

		result, order, err := h.PlaceBid(c.Params("id"), bid.BidderID, *bid.Amount)
		if err != nil {
			return houseError(c, err)
		}

		// Rejected bids are a normal outcome, reported with the reason.
		response := PlaceBidResponseSchema{Result: result}
		if !result.Success {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(response)
		}
		response.Order = &order
		return c.Status(fiber.StatusCreated).JSON(response)
	}
}

func GetOrderBook(h *house.House) fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Params("id")
		if _, err := h.Auction(id); err != nil {
			return houseError(c, err)
		}
		return c.JSON(h.Ledger().Snapshot(id))
	}
}

func GetPriceDepth(h *house.House) fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Params("id")
		if _, err := h.Auction(id); err != nil {
			return houseError(c, err)
		}

		levels := ledger.DefaultDepthLevels
		if raw := c.Query("levels"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fiber.ErrBadRequest
			}
			levels = n
		}
		return c.JSON(h.Ledger().PriceDepth(id, levels))
	}
}

func GetTopBid(h *house.House) fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Params("id")
		if _, err := h.Auction(id); err != nil {
			return houseError(c, err)
		}
		return c.JSON(TopBidResponseSchema{
			AuctionID: id,
			TopBid:    h.Ledger().TopBid(id),
		})
	}
}

func GetOrderByID(h *house.House) fiber.Handler {
	return func(c fiber.Ctx) error {
		order, ok := h.Ledger().Order(c.Params("id"))
		if !ok {
			return fiber.ErrNotFound
		}
		return c.JSON(order)
	}
}

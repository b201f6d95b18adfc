package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	gavelNet "gavel/internal/net"

	"github.com/google/uuid"
)

var reportNames = map[gavelNet.ReportMessageType]string{
	gavelNet.Accepted:    "ACCEPTED",
	gavelNet.Rejected:    "REJECTED",
	gavelNet.ErrorReport: "ERROR",
}

func main() {
	// 1. CLI Parameter Parsing
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the auction server")
	action := flag.String("action", "bid", "Action to perform: ['start', 'bid', 'cancel', 'fill', 'end', 'ping']")

	// Auction Parameters
	auctionID := flag.String("auction", "", "UUID of the auction")
	bidder := flag.String("bidder", "", "Bidder name (required for bids)")
	amountStr := flag.String("amount", "", "Bid amount or comma-separated list (e.g. 110,120,150)")

	// Order Parameters
	orderID := flag.String("order", "", "UUID of the order to fill or cancel")

	flag.Parse()

	messages, err := buildMessages(strings.ToLower(*action), *auctionID, *orderID, *bidder, *amountStr)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	// Connect to Server
	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s\n", *serverAddr)

	// One report comes back for every message.
	for _, msg := range messages {
		if _, err := conn.Write(msg.Encode()); err != nil {
			log.Fatalf("Failed to send %s: %v", msg.GetType(), err)
		}
		fmt.Printf("-> Sent %s\n", msg.GetType())

		report, err := gavelNet.ReadReport(conn)
		if err != nil {
			log.Fatalf("Failed to read report: %v", err)
		}
		printReport(report)
	}
}

func buildMessages(action, auctionID, orderID, bidder, amounts string) ([]gavelNet.Message, error) {
	switch action {
	case "ping":
		return []gavelNet.Message{gavelNet.BaseMessage{TypeOf: gavelNet.Heartbeat}}, nil

	case "start", "end":
		id, err := uuid.Parse(auctionID)
		if err != nil {
			return nil, fmt.Errorf("-auction must be a valid uuid: %w", err)
		}
		typeOf := gavelNet.StartAuction
		if action == "end" {
			typeOf = gavelNet.EndAuction
		}
		return []gavelNet.Message{gavelNet.NewAuctionMessage(typeOf, id)}, nil

	case "bid":
		id, err := uuid.Parse(auctionID)
		if err != nil {
			return nil, fmt.Errorf("-auction must be a valid uuid: %w", err)
		}
		if bidder == "" {
			return nil, fmt.Errorf("-bidder is required for bids")
		}
		var messages []gavelNet.Message
		for _, amount := range parseAmounts(amounts) {
			messages = append(messages, gavelNet.NewPlaceBidMessage(id, bidder, amount))
		}
		if len(messages) == 0 {
			return nil, fmt.Errorf("-amount is required for bids")
		}
		return messages, nil

	case "cancel", "fill":
		id, err := uuid.Parse(orderID)
		if err != nil {
			return nil, fmt.Errorf("-order must be a valid uuid: %w", err)
		}
		typeOf := gavelNet.CancelOrder
		if action == "fill" {
			typeOf = gavelNet.FillOrder
		}
		return []gavelNet.Message{gavelNet.NewOrderMessage(typeOf, id)}, nil

	default:
		return nil, fmt.Errorf("unknown action: %s", action)
	}
}

// parseAmounts splits a comma-separated string into bid amounts
func parseAmounts(input string) []float64 {
	var result []float64
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if val, err := strconv.ParseFloat(p, 64); err == nil {
			result = append(result, val)
		} else {
			log.Printf("Warning: Invalid amount '%s', skipping.", p)
		}
	}
	return result
}

func printReport(r gavelNet.Report) {
	fmt.Printf("<- %-8s %-13s at %s price=%.2f ref=%s",
		reportNames[r.MessageType],
		r.Request,
		time.Unix(0, int64(r.Timestamp)).Format(time.RFC3339),
		r.Price,
		r.Ref,
	)
	if r.Text != "" {
		fmt.Printf(" %q", r.Text)
	}
	fmt.Println()
}

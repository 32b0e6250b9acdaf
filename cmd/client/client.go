package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"vidar/internal/common"
	vidarNet "vidar/internal/net"
)

func main() {
	// 1. CLI Parameter Parsing
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the exchange server")
	clientID := flag.Uint("client", 0, "Client id (compulsory, nonzero)")
	action := flag.String("action", "place", "Action to perform: ['place', 'cancel']")

	// Order Parameters
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	price := flag.Int64("price", 100, "Limit price in ticks")
	qtyStr := flag.String("qty", "10", "Shares or comma-separated list (e.g. 10,20,50)")

	// Cancel Parameters
	orderID := flag.Uint64("order", 0, "Id of the order to cancel")

	flag.Parse()

	// Validation
	if *clientID == 0 {
		fmt.Println("Error: -client is compulsory.")
		flag.Usage()
		os.Exit(1)
	}

	// Connect to Server
	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s as client %d\n", *serverAddr, *clientID)

	// Start Listening for Reports (Async)
	go readReports(conn, uint32(*clientID))

	side := common.Buy
	if strings.ToLower(*sideStr) == "sell" {
		side = common.Sell
	}

	// Execute Action
	switch strings.ToLower(*action) {
	case "place":
		for _, qty := range parseQuantities(*qtyStr) {
			err := sendPlaceOrder(conn, uint32(*clientID), side, *price, qty)
			if err != nil {
				log.Printf("Failed to place order (Qty: %d): %v", qty, err)
			} else {
				fmt.Printf("-> Sent %s Order: %d @ %d\n", strings.ToUpper(*sideStr), qty, *price)
			}
			// Small optional sleep to keep server-side sequencing readable
			time.Sleep(5 * time.Millisecond)
		}

	case "cancel":
		if *orderID == 0 {
			log.Fatal("Error: -order is required for cancellation")
		}
		if err := sendCancelOrder(conn, *orderID); err != nil {
			log.Printf("Failed to send cancel request: %v", err)
		} else {
			fmt.Printf("-> Sent Cancel Request for order %d\n", *orderID)
		}

	default:
		log.Fatalf("Unknown action: %s", *action)
	}

	// Keep the client alive to receive execution reports
	fmt.Println("\nListening for reports... (Press Ctrl+C to exit)")
	select {}
}

// parseQuantities splits a comma-separated string into a slice of int64
func parseQuantities(input string) []int64 {
	parts := strings.Split(input, ",")
	var result []int64
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if val, err := strconv.ParseInt(p, 10, 64); err == nil {
			result = append(result, val)
		} else {
			log.Printf("Warning: Invalid quantity '%s', skipping.", p)
		}
	}
	return result
}

func sendPlaceOrder(conn net.Conn, clientID uint32, side common.Side, price, qty int64) error {
	frame := vidarNet.SerializeNewOrder(vidarNet.NewOrderMessage{
		ClientID:   clientID,
		Side:       side,
		LimitPrice: price,
		Shares:     qty,
	})
	_, err := conn.Write(frame)
	return err
}

func sendCancelOrder(conn net.Conn, orderID uint64) error {
	frame := vidarNet.SerializeCancelOrder(vidarNet.CancelOrderMessage{OrderID: orderID})
	_, err := conn.Write(frame)
	return err
}

// readReports continuously reads and prints Report messages from the server
func readReports(conn net.Conn, clientID uint32) {
	for {
		report, err := vidarNet.ParseReport(conn)
		if err != nil {
			if err != io.EOF {
				log.Printf("Connection lost: %v", err)
			}
			os.Exit(0)
		}

		if report.MessageType == vidarNet.ErrorReport {
			fmt.Printf("\n[SERVER ERROR] %s\n", report.Err)
			continue
		}

		// Print the execution from this client's perspective.
		side, avg, cum, leaves := report.MakerSide, report.MakerAvgPrice, report.MakerCumQty, report.MakerLeavesQty
		role := "MAKER"
		if report.TakerClientID == clientID {
			side, avg, cum, leaves = report.TakerSide, report.TakerAvgPrice, report.TakerCumQty, report.TakerLeavesQty
			role = "TAKER"
		}
		fmt.Printf("\n[EXECUTION %d] %s %s %s | Qty: %d @ %d | Cum: %d | Leaves: %d | Avg: %s\n",
			report.ExecutionID, role, strings.ToUpper(side.String()), report.Symbol,
			report.ExecSize, report.ExecPrice, cum, leaves, avg)
	}
}

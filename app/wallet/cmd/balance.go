package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/simplechain/node/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

type balance struct {
	PublicKey database.PublicKey `json:"pubkey"`
	Balance   uint32             `json:"balance"`
}

type balances struct {
	LatestBlock string    `json:"latest_block"`
	Uncommitted int       `json:"uncommitted"`
	Balances    []balance `json:"balances"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}

func balanceRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	pk := database.PublicKeyFromECDSA(privateKey.PublicKey)
	fmt.Println("For Account:", pk)

	resp, err := http.Get(fmt.Sprintf("%s/v1/balances/list/%s", url, pk))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("node responded with status %d", resp.StatusCode)
	}

	decoder := json.NewDecoder(resp.Body)
	var bals balances
	if err := decoder.Decode(&bals); err != nil {
		log.Fatal(err)
	}

	if len(bals.Balances) > 0 {
		fmt.Println(bals.Balances[0].Balance)
	}
}

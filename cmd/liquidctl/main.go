// Command liquidctl is the operator CLI for liquidctld: a thin os.Args
// dispatcher posting JSON requests to the daemon's HTTP query/admin API,
// the same shape as the teacher's cmd/nhb-cli — one switch over
// os.Args[1], one small helper per subcommand, plain net/http JSON calls
// rather than a generated RPC client.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"liquidctl/crypto"
)

func endpoint() string {
	if v := os.Getenv("LIQUIDCTL_ENDPOINT"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func authToken() string {
	return os.Getenv("LIQUIDCTL_TOKEN")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	switch os.Args[1] {
	case "generate-key":
		generateKey()
	case "exchange-rate":
		get("/v1/exchange-rate")
	case "validators":
		get("/v1/validators")
	case "batch":
		requireArgs(2, "batch <id>")
		get("/v1/batches/" + os.Args[2])
	case "voucher":
		requireArgs(2, "voucher <id>")
		get("/v1/vouchers/" + os.Args[2])
	case "bond":
		requireArgs(4, "bond <caller> <denom> <amount>")
		post("/v1/bond", map[string]string{
			"caller": os.Args[2], "denom": os.Args[3], "amount": os.Args[4],
		})
	case "unbond":
		requireArgs(4, "unbond <caller> <amount> <now>")
		now, err := strconv.ParseInt(os.Args[4], 10, 64)
		if err != nil {
			fatalf("invalid now: %v", err)
		}
		postRaw("/v1/unbond", map[string]interface{}{
			"caller": os.Args[2], "amount": os.Args[3], "now": now,
		})
	case "withdraw":
		requireArgs(3, "withdraw <caller> <voucher_id> [receiver]")
		receiver := ""
		if len(os.Args) > 4 {
			receiver = os.Args[4]
		}
		post("/v1/withdraw", map[string]string{
			"caller": os.Args[2], "voucher_id": os.Args[3], "receiver": receiver,
		})
	case "update-config":
		requireArgs(3, "update-config <caller> <config_json_file>")
		raw, err := os.ReadFile(os.Args[3])
		if err != nil {
			fatalf("read config file: %v", err)
		}
		var configBody map[string]interface{}
		if err := json.Unmarshal(raw, &configBody); err != nil {
			fatalf("parse config file: %v", err)
		}
		postRaw("/v1/admin/config", map[string]interface{}{
			"caller": os.Args[2], "config": configBody,
		})
	case "update-validators":
		requireArgs(3, "update-validators <caller> <validators_json_file>")
		raw, err := os.ReadFile(os.Args[3])
		if err != nil {
			fatalf("read validators file: %v", err)
		}
		var validatorsBody []interface{}
		if err := json.Unmarshal(raw, &validatorsBody); err != nil {
			fatalf("parse validators file: %v", err)
		}
		postRaw("/v1/admin/validators", map[string]interface{}{
			"caller": os.Args[2], "validators": validatorsBody,
		})
	case "set-pause":
		requireArgs(5, "set-pause <caller> <tick:true|false> <bond:true|false> <unbond:true|false>")
		postRaw("/v1/admin/pause", map[string]interface{}{
			"caller": os.Args[2],
			"tick":   mustParseBool(os.Args[3]),
			"bond":   mustParseBool(os.Args[4]),
			"unbond": mustParseBool(os.Args[5]),
		})
	case "edit-ontop":
		requireArgs(5, "edit-ontop <caller> <operator> <add|set> <amount>")
		post("/v1/admin/ontop", map[string]string{
			"caller": os.Args[2], "operator": os.Args[3], "op": os.Args[4], "amount": os.Args[5],
		})
	case "emergency-withdrawal":
		requireArgs(5, "emergency-withdrawal <caller> <batch_id> <amount> <now>")
		now, err := strconv.ParseInt(os.Args[5], 10, 64)
		if err != nil {
			fatalf("invalid now: %v", err)
		}
		postRaw("/v1/admin/emergency-withdrawal", map[string]interface{}{
			"caller": os.Args[2], "batch_id": os.Args[3], "amount": os.Args[4], "now": now,
		})
	case "credit-reward":
		requireArgs(4, "credit-reward <caller> <denom> <amount>")
		post("/v1/admin/rewards/credit", map[string]string{
			"caller": os.Args[2], "denom": os.Args[3], "amount": os.Args[4],
		})
	case "split-rewards":
		requireArgs(3, "split-rewards <caller> <amount>")
		post("/v1/admin/rewards/split", map[string]string{
			"caller": os.Args[2], "amount": os.Args[3],
		})
	case "transfer-ownership":
		requireArgs(3, "transfer-ownership <caller> <new_owner>")
		post("/v1/admin/ownership/transfer", map[string]string{
			"caller": os.Args[2], "new_owner": os.Args[3],
		})
	case "accept-ownership":
		requireArgs(2, "accept-ownership <caller>")
		post("/v1/admin/ownership/accept", map[string]string{"caller": os.Args[2]})
	case "renounce-ownership":
		requireArgs(2, "renounce-ownership <caller>")
		post("/v1/admin/ownership/renounce", map[string]string{"caller": os.Args[2]})
	case "cancel-ownership-transfer":
		requireArgs(2, "cancel-ownership-transfer <caller>")
		post("/v1/admin/ownership/cancel", map[string]string{"caller": os.Args[2]})
	case "register-ica":
		requireArgs(2, "register-ica <caller>")
		post("/v1/admin/ica/register", map[string]string{"caller": os.Args[2]})
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
	}
}

func requireArgs(n int, usage string) {
	if len(os.Args) <= n {
		fatalf("usage: liquidctl %s", usage)
	}
}

func mustParseBool(s string) bool {
	v, err := strconv.ParseBool(s)
	if err != nil {
		fatalf("invalid boolean %q: %v", s, err)
	}
	return v
}

func generateKey() {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fatalf("generate key: %v", err)
	}
	fileName := "liquidctl.key"
	if err := os.WriteFile(fileName, key.Bytes(), 0o600); err != nil {
		fatalf("save key to %s: %v", fileName, err)
	}
	fmt.Printf("Generated new key and saved to %s\n", fileName)
	fmt.Printf("Address: %s\n", key.PubKey().Address().String())
}

func get(path string) {
	req, err := http.NewRequest(http.MethodGet, endpoint()+path, nil)
	if err != nil {
		fatalf("build request: %v", err)
	}
	doAndPrint(req)
}

func post(path string, body map[string]string) {
	postRaw(path, body)
}

func postRaw(path string, body interface{}) {
	payload, err := json.Marshal(body)
	if err != nil {
		fatalf("encode request body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, endpoint()+path, bytes.NewReader(payload))
	if err != nil {
		fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	doAndPrint(req)
}

func doAndPrint(req *http.Request) {
	if token := authToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatalf("request %s failed: %v", req.URL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fatalf("read response: %v", err)
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(body))
	}
	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "liquidctl: "+format+"\n", args...)
	os.Exit(1)
}

func printUsage() {
	fmt.Println("Usage: liquidctl <command> [arguments]")
	fmt.Println("Commands:")
	fmt.Println("  generate-key                                          - generate an owner/caller keypair")
	fmt.Println("  exchange-rate                                         - query the current exchange rate and FSM state")
	fmt.Println("  validators                                            - list the configured validator set")
	fmt.Println("  batch <id>                                            - query one unbonding batch")
	fmt.Println("  voucher <id>                                          - query one withdrawal voucher")
	fmt.Println("  bond <caller> <denom> <amount>                        - bond base asset")
	fmt.Println("  unbond <caller> <amount> <now>                        - queue an unbond, minting a voucher")
	fmt.Println("  withdraw <caller> <voucher_id> [receiver]             - withdraw a matured voucher")
	fmt.Println("  update-config <caller> <config.json>                  - owner: replace the runtime config")
	fmt.Println("  update-validators <caller> <validators.json>          - owner: replace the validator set")
	fmt.Println("  set-pause <caller> <tick> <bond> <unbond>             - owner: set pause flags")
	fmt.Println("  edit-ontop <caller> <operator> <add|set> <amount>     - owner: adjust a validator's on-top allocation")
	fmt.Println("  emergency-withdrawal <caller> <batch_id> <amount> <now> - owner: fund an emergency withdrawal")
	fmt.Println("  credit-reward <caller> <denom> <amount>               - owner: credit a claimed reward into the pump")
	fmt.Println("  split-rewards <caller> <amount>                       - owner: split and pay out settled rewards")
	fmt.Println("  transfer-ownership <caller> <new_owner>               - owner: propose an ownership transfer")
	fmt.Println("  accept-ownership <caller>                             - pending owner: accept a proposed transfer")
	fmt.Println("  renounce-ownership <caller>                           - owner: irreversibly renounce ownership")
	fmt.Println("  cancel-ownership-transfer <caller>                    - owner: cancel a pending transfer")
	fmt.Println("  register-ica <caller>                                 - owner: (re-)register the interchain account")
}

package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"

	_ "github.com/go-sql-driver/mysql"
)

// Seeds a demo company with a connected channel instance, one lead with an
// open conversation and a starting credit balance. Meant for local setups
// only; run the server once with --migration-do first so the tables exist.
func main() {
	dsn := flag.String("dsn", "root:root@tcp(127.0.0.1:3306)/flowzap?parseTime=true", "MySQL DSN")
	balance := flag.Int64("balance", 1000, "starting credit balance")
	flag.Parse()

	db, err := sql.Open("mysql", *dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	res, err := db.Exec(`INSERT INTO companies (name, created_at, updated_at) VALUES ('Demo Company', NOW(), NOW())`)
	if err != nil {
		log.Fatal(err)
	}
	companyID, _ := res.LastInsertId()
	fmt.Printf("✓ Company %d created\n", companyID)

	_, err = db.Exec(`
		INSERT INTO channel_instances (company_id, name, provider, status, base_url, api_key, created_at, updated_at)
		VALUES (?, 'demo-instance', 'whatsapp', 'connected', 'http://localhost:8080', 'demo-api-key', NOW(), NOW())
		ON DUPLICATE KEY UPDATE status = 'connected'
	`, companyID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("✓ Channel instance demo-instance created")

	res, err = db.Exec(`INSERT INTO leads (company_id, name, phone, created_at, updated_at) VALUES (?, 'Demo Lead', '5511999000111', NOW(), NOW())`, companyID)
	if err != nil {
		log.Fatal(err)
	}
	leadID, _ := res.LastInsertId()

	var instanceID int64
	if err := db.QueryRow(`SELECT id FROM channel_instances WHERE name = 'demo-instance'`).Scan(&instanceID); err != nil {
		log.Fatal(err)
	}

	_, err = db.Exec(`
		INSERT INTO conversations (company_id, lead_id, channel_instance_id, remote_jid, status, created_at, updated_at)
		VALUES (?, ?, ?, '5511999000111@s.whatsapp.net', 'active', NOW(), NOW())
	`, companyID, leadID, instanceID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("✓ Lead %d with active conversation created\n", leadID)

	_, err = db.Exec(`INSERT INTO credit_accounts (company_id, balance, created_at, updated_at) VALUES (?, ?, NOW(), NOW())`, companyID, *balance)
	if err != nil {
		log.Fatal(err)
	}
	_, err = db.Exec(`
		INSERT INTO credit_transactions (company_id, type, amount, service_type, description, actor, created_at)
		VALUES (?, 'purchase', ?, '', 'Seed balance', 'seed-script', NOW())
	`, companyID, *balance)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("✓ Credit account funded with %d credits\n", *balance)
}

// Seeds the orders table that the scaffold from `dbrun init` queries.
//
// Usage: go run ./scripts -db test_db -count 500
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"golang.org/x/sync/errgroup"
)

const schema = `CREATE TABLE IF NOT EXISTS orders (
	id INT AUTO_INCREMENT PRIMARY KEY,
	customer_name VARCHAR(64) NOT NULL,
	total_amount DECIMAL(10,2) NOT NULL,
	status VARCHAR(16) NOT NULL,
	created_at DATETIME NOT NULL,
	KEY idx_orders_status (status)
)`

type order struct {
	customer  string
	total     float64
	status    string
	createdAt time.Time
}

func main() {
	var (
		host     string
		port     int
		user     string
		password string
		database string
		count    int
		workers  int
	)
	flag.StringVar(&host, "host", "localhost", "MySQL host")
	flag.IntVar(&port, "port", 3306, "MySQL port")
	flag.StringVar(&user, "user", "root", "MySQL user")
	flag.StringVar(&password, "password", "", "MySQL password")
	flag.StringVar(&database, "db", "test_db", "Database name")
	flag.IntVar(&count, "count", 500, "Number of orders to generate")
	flag.IntVar(&workers, "workers", 4, "Concurrent insert workers")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", host, port)
	cfg.User = user
	cfg.Passwd = password
	cfg.DBName = database
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		panic(fmt.Errorf("open failed: %w", err))
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		panic(fmt.Errorf("connect failed: %w", err))
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		panic(fmt.Errorf("create table failed: %w", err))
	}

	statuses := []string{"pending", "paid", "shipped", "cancelled"}
	customers := []string{
		"Alice Zhang", "Bo Chen", "Carol Wu", "David Lin", "Emma Liu",
		"Frank Huang", "Grace Yang", "Henry Zhao", "Iris Wang", "Jack Sun",
	}

	// Rows are generated up front on one goroutine; rand.Rand is not safe
	// for concurrent use.
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	rows := make([]order, count)
	for i := range rows {
		rows[i] = order{
			customer:  customers[rng.Intn(len(customers))],
			total:     float64(10+rng.Intn(4900)) / 100.0,
			status:    statuses[rng.Intn(len(statuses))],
			createdAt: time.Now().Add(-time.Duration(rng.Intn(720)) * time.Hour),
		}
	}

	const batchSize = 50
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < count; start += batchSize {
		batch := rows[start:min(start+batchSize, count)]
		g.Go(func() error {
			return insertBatch(ctx, db, batch)
		})
	}
	if err := g.Wait(); err != nil {
		panic(fmt.Errorf("insert failed: %w", err))
	}

	fmt.Printf("seeded %d orders into %s.orders\n", count, database)
	fmt.Println("try: dbrun run orders_by_status --input status=pending")
}

func insertBatch(ctx context.Context, db *sql.DB, batch []order) error {
	placeholders := make([]string, len(batch))
	args := make([]any, 0, len(batch)*4)
	for i, o := range batch {
		placeholders[i] = "(?, ?, ?, ?)"
		args = append(args, o.customer, o.total, o.status, o.createdAt)
	}

	query := "INSERT INTO orders (customer_name, total_amount, status, created_at) VALUES " +
		strings.Join(placeholders, ", ")
	_, err := db.ExecContext(ctx, query, args...)
	return err
}

package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/grocery-shop/internal/auth"
	"github.com/vasiliy-maslov/grocery-shop/internal/cart"
	"github.com/vasiliy-maslov/grocery-shop/internal/config"
	"github.com/vasiliy-maslov/grocery-shop/internal/db"
	"github.com/vasiliy-maslov/grocery-shop/internal/item"
	"github.com/vasiliy-maslov/grocery-shop/internal/order"
	"golang.org/x/crypto/bcrypt"
)

const (
	testUserEmail    = "test@example.com"
	testUserPassword = "Test1234!"
)

// main наполняет базу демонстрационным каталогом, тестовым пользователем,
// корзиной и одним доставленным заказом. Перед вставкой база очищается,
// запуск всегда даёт одинаковое состояние.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "seed").Logger()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx := context.Background()

	dbConn, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	if err := truncateAll(ctx, dbConn); err != nil {
		log.Fatal().Err(err).Msg("Failed to truncate tables")
	}

	itemRepo := item.NewRepository(dbConn.Pool)
	authRepo := auth.NewRepository(dbConn.Pool)
	cartRepo := cart.NewRepository(dbConn.Pool)
	orderRepo := order.NewRepository(dbConn.Pool)

	items := seedItems()
	for i := range items {
		if err := itemRepo.Create(ctx, &items[i]); err != nil {
			log.Fatal().Err(err).Str("name", items[i].Name).Msg("Failed to insert item")
		}
	}
	log.Info().Int("count", len(items)).Msg("Catalog seeded")

	hash, err := bcrypt.GenerateFromPassword([]byte(testUserPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash test user password")
	}

	user := &auth.User{Email: testUserEmail, PasswordHash: string(hash)}
	if err := authRepo.CreateUser(ctx, user); err != nil {
		log.Fatal().Err(err).Msg("Failed to insert test user")
	}
	log.Info().Str("email", user.Email).Stringer("user_id", user.ID).Msg("Test user created")

	// Пара строк в корзине, чтобы чекаут было чем проверить.
	for _, line := range []struct {
		name string
		qty  int
	}{
		{"Banana", 2},
		{"Milk", 1},
	} {
		it := findItem(items, line.name)
		if _, err := cartRepo.Upsert(ctx, user.ID, it.ID, line.qty); err != nil {
			log.Fatal().Err(err).Str("name", line.name).Msg("Failed to insert cart line")
		}
	}
	log.Info().Msg("Cart seeded")

	bread := findItem(items, "Bread")
	apple := findItem(items, "Apple")
	delivered := &order.Order{
		UserID: user.ID,
		Status: order.StatusDelivered,
		OrderItems: []order.OrderItem{
			{ItemID: bread.ID, Quantity: 2, PriceAtPurchase: bread.Price},
			{ItemID: apple.ID, Quantity: 1, PriceAtPurchase: apple.Price},
		},
		TotalPrice: bread.Price.Mul(decimal.NewFromInt(2)).Add(apple.Price),
	}
	if err := orderRepo.Create(ctx, delivered); err != nil {
		log.Fatal().Err(err).Msg("Failed to insert sample order")
	}
	log.Info().Str("tracking_id", delivered.TrackingID).Msg("Sample order created")

	log.Info().Msg("Seed finished")
}

func truncateAll(ctx context.Context, dbConn *db.Postgres) error {
	// Порядок важен из-за внешних ключей на users и orders.
	for _, table := range []string{"order_items", "orders", "cart_items", "sessions", "users", "items"} {
		if _, err := dbConn.Pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func seedItems() []item.Item {
	return []item.Item{
		{Name: "Banana", Description: "Fresh ripe bananas, sold per dozen", Price: decimal.NewFromFloat(60.0), Stock: 50, Category: item.CategoryFruit},
		{Name: "Apple", Description: "Crisp red apples, 1 kg pack", Price: decimal.NewFromFloat(180.0), Stock: 30, Category: item.CategoryFruit},
		{Name: "Tomato", Description: "Vine tomatoes, 1 kg pack", Price: decimal.NewFromFloat(40.0), Stock: 80, Category: item.CategoryVegetable},
		{Name: "Chicken", Description: "Skinless chicken breast, 500 g", Price: decimal.NewFromFloat(220.0), Stock: 20, Category: item.CategoryNonVeg},
		{Name: "Bread", Description: "Whole wheat sandwich loaf", Price: decimal.NewFromFloat(35.0), Stock: 40, Category: item.CategoryBread},
		{Name: "Milk", Description: "Full cream milk, 1 L", Price: decimal.NewFromFloat(45.0), Stock: 100, Category: item.CategoryDairy},
		{Name: "Potato", Description: "Washed potatoes, 1 kg pack", Price: decimal.NewFromFloat(30.0), Stock: 120, Category: item.CategoryVegetable},
		{Name: "Maggi", Description: "Instant noodles, pack of 12", Price: decimal.NewFromFloat(120.0), Stock: 60, Category: item.CategoryPantry},
	}
}

func findItem(items []item.Item, name string) *item.Item {
	for i := range items {
		if items[i].Name == name {
			return &items[i]
		}
	}
	log.Fatal().Str("name", name).Msg("Seed item not found")
	return nil
}

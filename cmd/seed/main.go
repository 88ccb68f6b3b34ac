package main

import (
	"context"
	"fmt"

	"github.com/xiaodian-next/internal/config"
	"github.com/xiaodian-next/internal/constants"
	"github.com/xiaodian-next/internal/logger"
	"github.com/xiaodian-next/internal/models"
	"github.com/xiaodian-next/internal/promohash"

	"github.com/redis/go-redis/v9"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	thumb := func(name string) *string {
		url := "https://cdn.example.com/products/" + name + ".jpg"
		return &url
	}

	// 示例商品
	products := []models.Product{
		{Key: "p1001", Title: "无线蓝牙耳机", SKU: "XD-EAR-1001", Price: models.NewMoneyFromInt(199), Unit: "副", Thumbnail: thumb("p1001"), IsActive: true},
		{Key: "p1002", Title: "便携充电宝 10000mAh", SKU: "XD-PWR-1002", Price: models.NewMoneyFromInt(129), Unit: "个", Thumbnail: thumb("p1002"), IsActive: true},
		{Key: "p1003", Title: "保温水杯 500ml", SKU: "XD-CUP-1003", Price: models.NewMoneyFromInt(59), Unit: "个", Thumbnail: thumb("p1003"), IsActive: true},
		{Key: "p1004", Title: "机械键盘 87 键", SKU: "XD-KBD-1004", Price: models.NewMoneyFromInt(349), Unit: "把", Thumbnail: thumb("p1004"), IsActive: true},
		{Key: "p1005", Title: "已下架测试商品", SKU: "XD-OFF-1005", Price: models.NewMoneyFromInt(1), Unit: "个", IsActive: false},
	}
	for _, product := range products {
		var existing models.Product
		if err := models.DB.Where("key = ?", product.Key).First(&existing).Error; err != nil {
			if err := models.DB.Create(&product).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", product.Key, err)
			} else {
				stdLog.Printf("Created product: %s", product.Key)
			}
		} else {
			stdLog.Printf("Product already exists: %s", product.Key)
		}
	}

	// 示例促销码：指纹按码的小写形式计算，展示码不落库
	promotions := []struct {
		code string
		unit string
		val  int64
	}{
		{code: "SAVE10", unit: constants.PromoUnitPercent, val: 10},
		{code: "WELCOME", unit: constants.PromoUnitFlat, val: 20},
	}
	for _, promo := range promotions {
		hash := promohash.Fingerprint(promo.code)
		var existing models.Promotion
		if err := models.DB.Where("match_hash = ?", hash).First(&existing).Error; err != nil {
			record := models.Promotion{
				MatchHash: hash,
				Unit:      promo.unit,
				Value:     models.NewMoneyFromInt(promo.val),
				IsActive:  true,
			}
			if err := models.DB.Create(&record).Error; err != nil {
				stdLog.Printf("Failed to create promotion %s: %v", promo.code, err)
			} else {
				stdLog.Printf("Created promotion: %s (%s %d)", promo.code, promo.unit, promo.val)
			}
		} else {
			stdLog.Printf("Promotion already exists: %s", promo.code)
		}
	}

	// 通知运行中的实例重新加载促销目录
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = client.Close() }()
		if err := client.Publish(context.Background(), constants.PromoChangedChannel, "seed").Err(); err != nil {
			stdLog.Printf("Failed to publish promo changed signal: %v", err)
		} else {
			stdLog.Printf("Published promo changed signal")
		}
	}

	stdLog.Printf("Seed finished")
}

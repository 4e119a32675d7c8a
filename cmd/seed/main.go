// cmd/seed/main.go: creates a demo business for local development and prints
// an access token for it.
// Uso: go run ./cmd/seed
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/config"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/infra"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/middleware"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const tokenTTL = 30 * 24 * time.Hour

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Env == "production" {
		log.Fatal().Msg("seed refuses to run with APP_ENV=production")
	}

	negocioID := uuid.New()
	if cfg.DefaultNegocioID != "" {
		if negocioID, err = uuid.Parse(cfg.DefaultNegocioID); err != nil {
			log.Fatal().Err(err).Msg("DEFAULT_NEGOCIO_ID is not a UUID")
		}
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	var caja model.Caja
	err = db.Transaction(func(tx *gorm.DB) error {
		almacen := model.Almacen{NegocioID: negocioID, Nombre: "Depósito principal", PorDefecto: true, Activo: true}
		if err := tx.Where(model.Almacen{NegocioID: negocioID, PorDefecto: true}).FirstOrCreate(&almacen).Error; err != nil {
			return err
		}
		caja = model.Caja{NegocioID: negocioID, AlmacenID: almacen.ID, Nombre: "Caja 1", Activa: true}
		if err := tx.Where(model.Caja{NegocioID: negocioID, Nombre: caja.Nombre}).FirstOrCreate(&caja).Error; err != nil {
			return err
		}

		metodos := []model.MetodoPago{
			{NegocioID: negocioID, Nombre: "Efectivo", Activo: true},
			{NegocioID: negocioID, Nombre: "Tarjeta", Activo: true},
			{NegocioID: negocioID, Nombre: "Cuenta corriente", EsCredito: true, Activo: true},
		}
		for i := range metodos {
			if err := tx.Where(model.MetodoPago{NegocioID: negocioID, Nombre: metodos[i].Nombre}).FirstOrCreate(&metodos[i]).Error; err != nil {
				return err
			}
		}

		codigo := "7790000000017"
		pres := model.Presentacion{NegocioID: negocioID, CodigoBarras: &codigo, Nombre: "Gaseosa 500ml", PrecioVenta: decimal.NewFromInt(1000), Activo: true}
		if err := tx.Where(model.Presentacion{NegocioID: negocioID, Nombre: pres.Nombre}).FirstOrCreate(&pres).Error; err != nil {
			return err
		}

		cliente := model.Cliente{NegocioID: negocioID, Nombre: "Cliente Demo", LimiteCredito: decimal.NewFromInt(50000), Estado: model.ClienteActivo}
		return tx.Where(model.Cliente{NegocioID: negocioID, Nombre: cliente.Nombre}).FirstOrCreate(&cliente).Error
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}

	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty, no token generated")
		return
	}
	now := time.Now()
	claims := middleware.JWTClaims{
		UserID:    uuid.NewString(),
		Username:  "admin-demo",
		Rol:       "administrador",
		NegocioID: negocioID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to sign token")
	}

	log.Info().Str("negocio_id", negocioID.String()).Str("caja_id", caja.ID.String()).Msg("demo business ready")
	fmt.Println(token)
}

package money_test

import (
	"fmt"
	"log"

	"github.com/amirasaad/ledger/pkg/money"
	"github.com/shopspring/decimal"
)

// ExampleNew demonstrates how to create a new Money instance
func ExampleNew() {
	usdMoney, err := money.New(decimal.RequireFromString("100.50"), money.USD)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("USD Money: %s\n", usdMoney.String())

	// JPY has no minor unit
	jpyMoney, err := money.New(decimal.NewFromInt(1000), money.JPY)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("JPY Money: %s\n", jpyMoney.String())
	// Output:
	// USD Money: 100.50 USD
	// JPY Money: 1000 JPY
}

// ExampleMoney_Add demonstrates adding money values
func ExampleMoney_Add() {
	money1 := money.Must("100.50", money.USD)
	money2 := money.Must("25.75", money.USD)

	result, err := money1.Add(money2)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Result: %s\n", result.String())
	// Output:
	// Result: 126.25 USD
}

// ExampleMoney_Convert demonstrates converting with a rate.
func ExampleMoney_Convert() {
	eur := money.Must("10.00", money.EUR)
	usd, err := eur.Convert(decimal.RequireFromString("1.0825"), money.USD)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(usd)
	// Output:
	// 10.83 USD
}

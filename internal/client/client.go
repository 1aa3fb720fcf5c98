// Package client implements a client for creating orders with the payment gateway.
package client

import (
	"context"
	"fmt"

	"github.com/danilovkiri/dk-go-donations/internal/config"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelgateway"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const ordersPath = "/v1/orders"

// Client defines attributes of a struct available to its methods.
type Client struct {
	client        *resty.Client
	gatewayConfig *config.GatewayConfig
	log           *zerolog.Logger
}

// InitClient initializes a resty client authenticated with the gateway key pair.
func InitClient(gatewayConfig *config.GatewayConfig, log *zerolog.Logger) *Client {
	gatewayClient := resty.New().
		SetHostURL(gatewayConfig.Address).
		SetBasicAuth(gatewayConfig.KeyID, gatewayConfig.KeySecret).
		SetTimeout(gatewayConfig.Timeout).
		SetHeader("Content-Type", "application/json")
	log.Info().Msg("payment gateway client initialized")
	return &Client{client: gatewayClient, gatewayConfig: gatewayConfig, log: log}
}

// CreateOrder asks the gateway for a new order of amount minor currency units.
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*modelgateway.Order, error) {
	c.log.Info().Msg(fmt.Sprintf("sending order request for receipt %s", receipt))
	response, err := c.client.R().
		SetContext(ctx).
		SetBody(modelgateway.OrderRequest{Amount: amount, Currency: currency, Receipt: receipt}).
		SetResult(&modelgateway.Order{}).
		SetError(&modelgateway.ErrorResponse{}).
		Post(ordersPath)
	if err != nil {
		c.log.Err(err).Msg(fmt.Sprintf("order creation failed for receipt %s", receipt))
		return nil, err
	}
	if response.IsError() {
		err = fmt.Errorf("gateway responded with status %d", response.StatusCode())
		if gwErr, ok := response.Error().(*modelgateway.ErrorResponse); ok && gwErr.Error.Description != "" {
			err = fmt.Errorf("gateway responded with status %d: %s", response.StatusCode(), gwErr.Error.Description)
		}
		c.log.Err(err).Msg(fmt.Sprintf("order creation failed for receipt %s", receipt))
		return nil, err
	}
	order, ok := response.Result().(*modelgateway.Order)
	if !ok || order.ID == "" {
		err = fmt.Errorf("gateway returned no order for receipt %s", receipt)
		c.log.Err(err).Msg("order creation failed")
		return nil, err
	}
	return order, nil
}

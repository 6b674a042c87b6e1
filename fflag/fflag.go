package fflag

import (
	"context"
	"log"
	"os"
	"time"

	ffclient "github.com/thomaspoignant/go-feature-flag"
	"github.com/thomaspoignant/go-feature-flag/ffcontext"
	"github.com/thomaspoignant/go-feature-flag/retriever"
	"github.com/thomaspoignant/go-feature-flag/retriever/fileretriever"
	"github.com/thomaspoignant/go-feature-flag/retriever/httpretriever"
)

type FFlag struct {
	Client *ffclient.GoFeatureFlag
}

func NewFFlag(flagsFilePath string) (FFlag, error) {
	appEnv := os.Getenv("DAYFLOW_APP_ENV")
	var r retriever.Retriever
	if appEnv == "development" {
		r = &fileretriever.Retriever{
			Path: flagsFilePath,
		}
	} else {
		r = &httpretriever.Retriever{
			URL:     "https://dayflow.dev/flags.yml",
			Timeout: 10 * time.Second,
		}
	}
	client, err := ffclient.New(ffclient.Config{
		PollingInterval: 60 * time.Second,
		Logger:          log.New(os.Stdout, "", 0),
		Context:         context.Background(),
		Retriever:       r,
	})
	if err != nil {
		return FFlag{}, err
	}
	return FFlag{Client: client}, nil
}

// IsGatewayEnabled reports whether gateway-backed features are enabled for the
// user. A nil client or an evaluation error falls back to enabled: flag
// infrastructure being down should never strand the gateway off.
func (f FFlag) IsGatewayEnabled(userId string) bool {
	if f.Client == nil {
		return true
	}
	evalContext := ffcontext.NewEvaluationContext(userId)
	enabled, err := f.Client.BoolVariation(GatewayEnabled, evalContext, true)
	if err != nil {
		log.Printf("Error evaluating feature flag: %v", err)
	}
	return enabled
}

// IsEnabled evaluates an arbitrary boolean flag for the user, failing closed.
func (f FFlag) IsEnabled(userId, flagName string) bool {
	if f.Client == nil {
		return false
	}
	evalContext := ffcontext.NewEvaluationContext(userId)
	enabled, err := f.Client.BoolVariation(flagName, evalContext, false)
	if err != nil {
		log.Printf("Error evaluating feature flag: %v", err)
	}
	return enabled
}

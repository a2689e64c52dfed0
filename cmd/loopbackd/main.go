/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Command loopbackd is the daemon process spec.md §6 describes: spawned
// detached by a client's connect_or_spawn, it loads its factory payload
// from disk (never argv, to avoid leaking constructor data into the
// process list), constructs the singleton, and serves it until idle or
// commanded to stop.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/sabouaram/loopback-singleton/daemon"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		name        string
		factoryFile string
		idleTTL     float64
		serializer  string
		scope       string
	)

	cmd := &cobra.Command{
		Use:           "loopbackd",
		Short:         "Background process serving one named loopback singleton",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("--name is required")
			}
			if factoryFile == "" {
				return errors.New("--factory-file is required")
			}

			cfg := daemon.Config{
				Name:            name,
				FactoryFilePath: factoryFile,
				IdleTTL:         time.Duration(idleTTL * float64(time.Second)),
				CodecName:       serializer,
				Scope:           scope,
			}

			d, err := daemon.New(cfg)
			if err != nil {
				return err
			}
			if err := d.Listen(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			return d.Run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&name, "name", "", "singleton name")
	flags.StringVar(&factoryFile, "factory-file", "", "path to the encoded factory payload")
	flags.Float64Var(&idleTTL, "idle-ttl", 300, "idle shutdown threshold in seconds")
	flags.StringVar(&serializer, "serializer", "cbor", "wire codec name")
	flags.StringVar(&scope, "scope", "user", "runtime directory scope")

	return cmd
}

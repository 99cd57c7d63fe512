// Package ctl implements the notifyctl operator commands on top of
// urfave/cli. Commands reach infrastructure through a Backend that opens
// connections on first use, so `notifyctl status` never dials the broker.
package ctl

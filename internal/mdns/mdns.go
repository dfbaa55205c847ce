// Package mdns advertises the upload service on the local network.
package mdns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/MuhamedUsman/imgdrop/internal/network"
	"github.com/brutella/dnssd"
	"github.com/brutella/dnssd/log"
)

const (
	mdnsService = "_http._tcp"
	// keys of the TXT records pointing clients at the upload routes
	ImagePathKey = "upload_image"
	FilePathKey  = "upload_file"
)

func init() {
	log.Info.Disable()
}

func serviceConfig(instance, host string, ip net.IP, port int) dnssd.Config {
	return dnssd.Config{
		Name: instance,
		Type: mdnsService,
		Host: host,
		Port: port,
		IPs:  []net.IP{ip},
		Text: map[string]string{
			ImagePathKey: "/upload-image",
			FilePathKey:  "/upload-file",
		},
	}
}

// Publish advertises instance on port via multicast DNS until ctx is canceled.
func Publish(ctx context.Context, instance string, port int) error {
	addr, err := network.GetOutboundIP()
	if err != nil {
		return err
	}
	host, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("hostname look-up: %w", err)
	}
	sv, err := dnssd.NewService(serviceConfig(instance, host, net.IP(addr.AsSlice()), port))
	if err != nil {
		return fmt.Errorf("registering mdns entry: %w", err)
	}
	rp, err := dnssd.NewResponder()
	if err != nil {
		return fmt.Errorf("creating mdns responder: %w", err)
	}
	if _, err = rp.Add(sv); err != nil {
		return fmt.Errorf("adding service to mdns responder: %w", err)
	}
	if err = rp.Respond(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("responding to mdns requests: %w", err)
	}
	return nil
}

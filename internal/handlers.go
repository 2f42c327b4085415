package internal

import (
	"errors"
	"net"

	"github.com/kpelzel/artnode/internal/artnet"
	"github.com/kpelzel/artnode/internal/metrics"
	"github.com/kpelzel/artnode/internal/settings"
	"github.com/kpelzel/artnode/internal/version"
	log "github.com/sirupsen/logrus"
)

// handleDMX admits frames inside the device window: every port sees the frame, then the
// statistics observe its universe.
func (n *node) handleDMX(data []byte, sender net.Addr) {
	if len(data) < artnet.HeaderSize {
		if n.dropLog.Allow() {
			log.Tracef("dropping %v byte dmx datagram from %v: incomplete header", len(data), sender)
		}
		return
	}

	f := artnet.NewFrame(data)
	u := int(f.Universe())
	if u < n.windowStart || u >= n.windowEnd {
		metrics.FramesFilteredTotal.Inc()
		if n.dropLog.Allow() {
			log.Tracef("dropping universe %v from %v: outside window %v-%v", u, sender, n.windowStart, n.windowEnd-1)
		}
		return
	}

	n.fleet.HandleFrame(f)
	n.stats.Observe(f.Universe())
	metrics.FramesAcceptedTotal.Inc()
}

func (n *node) handleSync(data []byte, sender net.Addr) {
	n.fleet.RequestSync()
}

func (n *node) handleDiscovery(data []byte, sender net.Addr) {
	pkt, err := artnet.ParseConfig(data)
	if err != nil {
		metrics.ConfigRequestsTotal.WithLabelValues("unknown", "malformed").Inc()
		log.Debugf("dropping config request from %v: %v", sender, err)
		return
	}

	switch pkt.Command {
	case artnet.CmdGet:
		log.Debugf("config get from %v", sender)
		if ip := hostIP(sender); ip != "" {
			if err := n.store.SetHostAppIP(ip); err != nil {
				log.Errorf("failed to store host app ip: %v", err)
			}
		}
		metrics.ConfigRequestsTotal.WithLabelValues("get", "ok").Inc()
		n.reply(artnet.CmdGetReply, sender)
	case artnet.CmdSet:
		n.handleSet(pkt, sender)
	default:
		metrics.ConfigRequestsTotal.WithLabelValues("unknown", "ignored").Inc()
		log.Debugf("dropping config request from %v: unknown command 0x%04x", sender, pkt.Command)
	}
}

// handleSet applies a parameter block. A bad checksum or a block for another device is
// ignored without a reply; an addressed block that fails validation is answered with
// CmdError and changes nothing.
func (n *node) handleSet(pkt *artnet.ConfigPacket, sender net.Addr) {
	if !pkt.ChecksumValid() {
		metrics.ConfigRequestsTotal.WithLabelValues("set", "checksum").Inc()
		log.Debugf("ignoring config set from %v: %v", sender, artnet.ErrChecksum)
		return
	}

	if !artnet.DataAddressed(pkt.Data, n.store.UID()) {
		metrics.ConfigRequestsTotal.WithLabelValues("set", "ignored").Inc()
		log.Debugf("ignoring config set from %v: not addressed to this device", sender)
		return
	}

	pb, err := artnet.DecodeParameterBlock(pkt.Data)
	if err != nil {
		metrics.ConfigRequestsTotal.WithLabelValues("set", "invalid").Inc()
		log.Warnf("rejecting config set from %v: %v", sender, err)
		n.reply(artnet.CmdError, sender)
		return
	}

	next, err := settings.FromBlock(pb, n.store.Current())
	if err == nil {
		err = n.store.Save(next)
	}
	if err != nil {
		result := "invalid"
		if !errors.Is(err, settings.ErrValidation) {
			result = "error"
		}
		metrics.ConfigRequestsTotal.WithLabelValues("set", result).Inc()
		log.Warnf("rejecting config set from %v: %v", sender, err)
		n.reply(artnet.CmdError, sender)
		return
	}

	metrics.ConfigRequestsTotal.WithLabelValues("set", "ok").Inc()
	log.Infof("config set from %v applied", sender)
	n.reply(artnet.CmdSetReply, sender)
}

// configPayload is the Get reply body: the parameter block followed by the firmware and
// product blocks.
func (n *node) configPayload() ([]byte, error) {
	cur := n.store.Current()
	pb := cur.Block(n.store.UID())

	fw := artnet.FirmwareBlock{BuildTime: version.BuildUnix()}
	fw.Major, fw.Minor, fw.Patch = version.Semver()
	artnet.PutString(fw.Commit[:], version.CommitID)

	var product artnet.ProductBlock
	artnet.PutString(product.ProductID[:], cur.ProductID)

	return artnet.EncodeBlocks(&pb, &fw, &product)
}

func (n *node) reply(cmd uint16, to net.Addr) {
	payload, err := n.configPayload()
	if err != nil {
		log.Errorf("failed to build config reply: %v", err)
		return
	}
	out, err := artnet.EncodeConfig(cmd, payload)
	if err != nil {
		log.Errorf("failed to encode config reply: %v", err)
		return
	}
	if _, err := n.replier.WriteTo(out, to); err != nil {
		log.Errorf("failed to send config reply to %v: %v", to, err)
	}
}

func hostIP(addr net.Addr) string {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP.String()
	case nil:
		return ""
	default:
		host, _, err := net.SplitHostPort(a.String())
		if err != nil {
			return ""
		}
		return host
	}
}

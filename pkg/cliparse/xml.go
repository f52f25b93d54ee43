package cliparse

import (
	"encoding/xml"
	"regexp"
	"strings"

	"github.com/visaev-dn/fleetctl/pkg/types"
	"github.com/visaev-dn/fleetctl/pkg/util"
)

var configBlockRe = regexp.MustCompile(`(?s)(<config[\s\S]*?</config>)`)

// xmlNode is a minimal generic XML tree: Go's encoding/xml already splits
// a qualified tag into Name.Space/Name.Local, which is what lets every
// lookup below match by local name only and stay agnostic to whichever
// YANG module namespace prefixed the element (dn-lacp, dn-top, ...).
type xmlNode struct {
	Local    string
	Text     string
	Children []*xmlNode
}

// find returns the first descendant (depth-first, including n itself)
// whose local tag name equals local.
func (n *xmlNode) find(local string) *xmlNode {
	if n.Local == local {
		return n
	}
	for _, c := range n.Children {
		if found := c.find(local); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns every descendant (not including n itself) whose local
// tag name equals local, at any depth.
func (n *xmlNode) findAll(local string) []*xmlNode {
	var out []*xmlNode
	for _, c := range n.Children {
		if c.Local == local {
			out = append(out, c)
		}
		out = append(out, c.findAll(local)...)
	}
	return out
}

// parseXMLTree decodes a well-formed XML document into an xmlNode tree
// rooted at a single implicit top node wrapping the document's elements.
func parseXMLTree(data []byte) (*xmlNode, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	root := &xmlNode{Local: "#root"}
	stack := []*xmlNode{root}

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := &xmlNode{Local: t.Name.Local}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, node)
			stack = append(stack, node)
		case xml.CharData:
			if len(stack) > 0 {
				cur := stack[len(stack)-1]
				cur.Text += string(t)
			}
		case xml.EndElement:
			if len(stack) > 1 {
				cur := stack[len(stack)-1]
				cur.Text = strings.TrimSpace(cur.Text)
				stack = stack[:len(stack)-1]
			}
		}
	}
	return root, nil
}

// extractConfigBlock isolates the `<config ...>...</config>` sentinel
// region from a larger CLI transcript (prompt text before/after the
// command's XML output).
func extractConfigBlock(raw string) (string, bool) {
	m := configBlockRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseLACPXML parses a `show config protocols lacp | display-xml`
// transcript into LACPBundle records, matching bundle interface elements
// by local name ("interface") whose name text contains "bundle-".
func ParseLACPXML(device, transcript string) ([]types.LACPBundle, error) {
	block, ok := extractConfigBlock(transcript)
	if !ok {
		return nil, util.NewCommandError(device, "show config protocols lacp | display-xml", "no <config> sentinel found in output")
	}

	root, err := parseXMLTree([]byte(block))
	if err != nil {
		return nil, util.NewCommandError(device, "show config protocols lacp | display-xml", err.Error())
	}

	var bundles []types.LACPBundle
	for _, iface := range root.findAll("interface") {
		nameNode := iface.find("name")
		if nameNode == nil || !strings.Contains(nameNode.Text, "bundle-") {
			continue
		}
		bundle := types.LACPBundle{BundleName: nameNode.Text, DeviceName: device, Status: types.LACPActive}
		if members := iface.find("members"); members != nil {
			for _, member := range members.findAll("member") {
				if memberIface := member.find("interface"); memberIface != nil && memberIface.Text != "" {
					bundle.MemberInterfaces = append(bundle.MemberInterfaces, memberIface.Text)
				}
			}
		}
		bundles = append(bundles, bundle)
	}
	return bundles, nil
}

// ParseLLDPXML parses an LLDP-capable `display-xml` transcript into
// LLDPNeighbor records, walking each interface's nested lldp/neighbor
// elements namespace-agnostically.
func ParseLLDPXML(device, transcript string) ([]types.LLDPNeighbor, error) {
	block, ok := extractConfigBlock(transcript)
	if !ok {
		return nil, util.NewCommandError(device, "show lldp neighbors | display-xml", "no <config> sentinel found in output")
	}

	root, err := parseXMLTree([]byte(block))
	if err != nil {
		return nil, util.NewCommandError(device, "show lldp neighbors | display-xml", err.Error())
	}

	interfacesRoot := root.find("interfaces")
	if interfacesRoot == nil {
		return nil, nil
	}

	var neighbors []types.LLDPNeighbor
	for _, iface := range interfacesRoot.findAll("interface") {
		nameNode := iface.find("name")
		if nameNode == nil || nameNode.Text == "" {
			continue
		}
		localIface := nameNode.Text

		lldp := iface.find("lldp")
		if lldp == nil {
			continue
		}
		for _, neighbor := range lldp.findAll("neighbor") {
			neighborIfaceNode := neighbor.find("interface")
			if neighborIfaceNode == nil {
				continue
			}
			neighborNameNode := neighborIfaceNode.find("name")
			if neighborNameNode == nil || neighborNameNode.Text == "" {
				continue
			}
			sysNameNode := neighbor.find("system-name")
			sysName := ""
			if sysNameNode != nil {
				sysName = sysNameNode.Text
			}
			neighbors = append(neighbors, types.LLDPNeighbor{
				LocalDevice:        device,
				LocalInterface:     localIface,
				NeighborSystemName: sysName,
				NeighborInterface:  neighborNameNode.Text,
				TTL:                "120",
			})
		}
	}
	return neighbors, nil
}

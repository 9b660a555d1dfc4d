package assessment

import "sort"

var registry = map[string]*Definition{}

// Register adds a definition to the catalog, keyed by its type slug.
func Register(def *Definition) {
	def.finalize()
	registry[def.Type] = def
}

// Lookup returns the registered definition for a type slug.
func Lookup(typ string) (*Definition, bool) {
	d, ok := registry[typ]
	return d, ok
}

// Summary is the catalog listing entry for one assessment type.
type Summary struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Steps     int    `json:"steps"`
	Questions int    `json:"questions"`
}

// Catalog lists all registered assessment types, sorted by slug.
func Catalog() []Summary {
	out := make([]Summary, 0, len(registry))
	for _, d := range registry {
		out = append(out, Summary{Type: d.Type, Title: d.Title, Steps: len(d.Steps), Questions: len(d.Questions)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// yesPartialNo is the standard option scale used by most questions.
func yesPartialNo() []Option {
	return []Option{
		{Value: 3, Label: "Yes, fully implemented"},
		{Value: 1, Label: "Partially implemented"},
		{Value: 0, Label: "No"},
	}
}

func init() {
	Register(ransomwareReadiness())
	Register(nistCSFQuickCheck())
	Register(zeroTrustMaturity())
	Register(supplyChainRisk())
}

func ransomwareReadiness() *Definition {
	return &Definition{
		Type:  "ransomware-readiness",
		Title: "Ransomware Readiness Assessment",
		Categories: []Category{
			{ID: "backup", Name: "Backup & Recovery"},
			{ID: "access", Name: "Access Control"},
			{ID: "detection", Name: "Detection & Response"},
			{ID: "awareness", Name: "Security Awareness"},
		},
		Questions: []Question{
			{ID: "rw-backup-offline", CategoryID: "backup", Prompt: "Do you maintain offline or immutable backups of critical data?", Options: yesPartialNo()},
			{ID: "rw-backup-tested", CategoryID: "backup", Prompt: "Have you tested restoring from backups within the last six months?", Options: yesPartialNo()},
			{ID: "rw-access-mfa", CategoryID: "access", Prompt: "Is multi-factor authentication enforced for all remote and administrative access?", Options: yesPartialNo()},
			{ID: "rw-access-least-priv", CategoryID: "access", Prompt: "Are user permissions limited to the minimum required for each role?", Options: yesPartialNo()},
			{ID: "rw-detect-edr", CategoryID: "detection", Prompt: "Do you run endpoint detection and response tooling on all workstations and servers?", Options: yesPartialNo()},
			{ID: "rw-detect-plan", CategoryID: "detection", Prompt: "Do you have a written, rehearsed ransomware incident response plan?", Options: yesPartialNo()},
			{ID: "rw-aware-training", CategoryID: "awareness", Prompt: "Do all staff receive phishing awareness training at least annually?", Options: yesPartialNo()},
			{ID: "rw-aware-phish-test", CategoryID: "awareness", Prompt: "Do you run simulated phishing campaigns and track results?", Options: yesPartialNo()},
		},
		Steps: []Step{
			{Title: "Organization", Required: nil},
			{Title: "Backup & Recovery", Required: []string{"rw-backup-offline", "rw-backup-tested"}},
			{Title: "Access Control", Required: []string{"rw-access-mfa", "rw-access-least-priv"}},
			{Title: "Detection & Awareness", Required: []string{"rw-detect-edr", "rw-detect-plan", "rw-aware-training", "rw-aware-phish-test"}},
		},
		Thresholds: RiskThresholds{Medium: 40, Good: 70},
		Catalog: []Recommendation{
			{ID: "rw-rec-offline-backup", Priority: PriorityCritical, MinScore: 40, Title: "Establish offline backups", Description: "Maintain at least one backup copy that is offline or immutable so encryption of production systems cannot reach it.", Citation: "NIST CSF PR.IP-4"},
			{ID: "rw-rec-mfa", Priority: PriorityCritical, MinScore: 50, Title: "Enforce MFA everywhere", Description: "Require multi-factor authentication on remote access, email and all administrative accounts.", Citation: "NIST CSF PR.AC-7"},
			{ID: "rw-rec-ir-plan", Priority: PriorityHigh, MinScore: 60, Title: "Write and rehearse an incident response plan", Description: "Document who does what in the first hours of a ransomware event and run a tabletop exercise.", Citation: "NIST CSF RS.RP-1"},
			{ID: "rw-rec-restore-test", Priority: PriorityHigh, MinScore: 70, Title: "Test restores regularly", Description: "A backup that has never been restored is a hope, not a control. Schedule restore drills.", Citation: "NIST CSF PR.IP-4"},
			{ID: "rw-rec-phish-sim", Priority: PriorityMedium, MinScore: 80, Title: "Run phishing simulations", Description: "Measure click rates with simulated campaigns and target follow-up training.", Citation: "NIST CSF PR.AT-1"},
			{ID: "rw-rec-edr-coverage", Priority: PriorityMedium, MinScore: 85, Title: "Close EDR coverage gaps", Description: "Inventory endpoints without detection tooling and bring them under management.", Citation: "NIST CSF DE.CM-4"},
			{ID: "rw-rec-tabletop", Priority: PriorityLow, MinScore: 95, Title: "Expand tabletop scenarios", Description: "Extend exercises to cover supplier compromise and double-extortion scenarios.", Citation: "NIST CSF RS.IM-2"},
		},
	}
}

func nistCSFQuickCheck() *Definition {
	return &Definition{
		Type:  "nist-csf",
		Title: "NIST CSF Quick Check",
		Categories: []Category{
			{ID: "identify", Name: "Identify"},
			{ID: "protect", Name: "Protect"},
			{ID: "detect", Name: "Detect"},
			{ID: "respond", Name: "Respond"},
			{ID: "recover", Name: "Recover"},
		},
		Questions: []Question{
			{ID: "csf-id-inventory", CategoryID: "identify", Prompt: "Do you maintain an up-to-date inventory of hardware, software and data assets?", Options: yesPartialNo()},
			{ID: "csf-pr-patching", CategoryID: "protect", Prompt: "Are operating systems and applications patched on a defined schedule?", Options: yesPartialNo()},
			{ID: "csf-de-logging", CategoryID: "detect", Prompt: "Are security-relevant logs collected centrally and reviewed?", Options: yesPartialNo()},
			{ID: "csf-rs-contacts", CategoryID: "respond", Prompt: "Are incident escalation contacts and communication templates defined?", Options: yesPartialNo()},
			{ID: "csf-rc-rto", CategoryID: "recover", Prompt: "Have you defined recovery time objectives for critical business services?", Options: yesPartialNo()},
		},
		Steps: []Step{
			{Title: "Organization", Required: nil},
			{Title: "Identify & Protect", Required: []string{"csf-id-inventory", "csf-pr-patching"}},
			{Title: "Detect, Respond & Recover", Required: []string{"csf-de-logging", "csf-rs-contacts", "csf-rc-rto"}},
		},
		Thresholds: RiskThresholds{Medium: 40, Good: 75},
		Catalog: []Recommendation{
			{ID: "csf-rec-inventory", Priority: PriorityCritical, MinScore: 45, Title: "Build an asset inventory", Description: "You cannot protect what you have not enumerated. Start with internet-facing systems.", Citation: "NIST CSF ID.AM-1"},
			{ID: "csf-rec-patch-cadence", Priority: PriorityHigh, MinScore: 60, Title: "Adopt a patch cadence", Description: "Define a monthly patch window plus an out-of-band process for critical advisories.", Citation: "NIST CSF PR.IP-12"},
			{ID: "csf-rec-central-logs", Priority: PriorityHigh, MinScore: 70, Title: "Centralize log collection", Description: "Forward authentication, firewall and endpoint logs to one queryable location.", Citation: "NIST CSF DE.AE-3"},
			{ID: "csf-rec-recovery-objectives", Priority: PriorityMedium, MinScore: 80, Title: "Set recovery objectives", Description: "Agree RTO/RPO per business service with its owner, then validate backups against them.", Citation: "NIST CSF RC.RP-1"},
		},
	}
}

func zeroTrustMaturity() *Definition {
	return &Definition{
		Type:  "zero-trust",
		Title: "Zero Trust Maturity Assessment",
		Categories: []Category{
			{ID: "identity", Name: "Identity"},
			{ID: "device", Name: "Devices"},
			{ID: "network", Name: "Network & Segmentation"},
		},
		Questions: []Question{
			{ID: "zt-id-sso", CategoryID: "identity", Prompt: "Is access to business applications brokered through a central identity provider?", Options: yesPartialNo()},
			{ID: "zt-id-context", CategoryID: "identity", Prompt: "Are sign-in decisions risk-based (location, device posture, anomaly signals)?", Options: yesPartialNo()},
			{ID: "zt-dev-posture", CategoryID: "device", Prompt: "Is device health (encryption, patch level) checked before granting access?", Options: yesPartialNo()},
			{ID: "zt-dev-inventory", CategoryID: "device", Prompt: "Are all devices that touch company data enrolled in management?", Options: yesPartialNo()},
			{ID: "zt-net-segmentation", CategoryID: "network", Prompt: "Is the internal network segmented so lateral movement is constrained?", Options: yesPartialNo()},
			{ID: "zt-net-vpn", CategoryID: "network", Prompt: "Has broad network-level VPN access been replaced with per-application access?", Options: yesPartialNo()},
		},
		Steps: []Step{
			{Title: "Organization", Required: nil},
			{Title: "Identity & Devices", Required: []string{"zt-id-sso", "zt-id-context", "zt-dev-posture", "zt-dev-inventory"}},
			{Title: "Network", Required: []string{"zt-net-segmentation", "zt-net-vpn"}},
		},
		Thresholds: RiskThresholds{Medium: 35, Good: 70},
		Catalog: []Recommendation{
			{ID: "zt-rec-idp", Priority: PriorityCritical, MinScore: 40, Title: "Centralize identity", Description: "Front applications with a single identity provider before layering on conditional access.", Citation: "NIST SP 800-207 §3.1"},
			{ID: "zt-rec-posture", Priority: PriorityHigh, MinScore: 60, Title: "Check device posture", Description: "Gate access on managed, encrypted, patched devices.", Citation: "NIST SP 800-207 §3.2"},
			{ID: "zt-rec-segment", Priority: PriorityMedium, MinScore: 75, Title: "Segment the network", Description: "Split flat networks so a single compromised host cannot reach everything.", Citation: "NIST SP 800-207 §3.4"},
		},
	}
}

func supplyChainRisk() *Definition {
	return &Definition{
		Type:  "supply-chain",
		Title: "Supply Chain Risk Assessment",
		Categories: []Category{
			{ID: "vendors", Name: "Vendor Management"},
			{ID: "software", Name: "Software Supply Chain"},
			{ID: "continuity", Name: "Continuity"},
		},
		Questions: []Question{
			{ID: "sc-vendor-inventory", CategoryID: "vendors", Prompt: "Do you maintain a register of vendors with access to systems or data?", Options: yesPartialNo()},
			{ID: "sc-vendor-review", CategoryID: "vendors", Prompt: "Are critical vendors security-reviewed before onboarding and periodically after?", Options: yesPartialNo()},
			{ID: "sc-sw-sbom", CategoryID: "software", Prompt: "Can you enumerate third-party components in the software you build or buy?", Options: yesPartialNo()},
			{ID: "sc-sw-updates", CategoryID: "software", Prompt: "Are vendor software updates verified before deployment to production?", Options: yesPartialNo()},
			{ID: "sc-cont-alternates", CategoryID: "continuity", Prompt: "Do you have identified alternatives for single-source critical suppliers?", Options: yesPartialNo()},
			{ID: "sc-cont-exit", CategoryID: "continuity", Prompt: "Do vendor contracts cover breach notification and exit/data-return terms?", Options: yesPartialNo()},
		},
		Steps: []Step{
			{Title: "Organization", Required: nil},
			{Title: "Vendors & Software", Required: []string{"sc-vendor-inventory", "sc-vendor-review", "sc-sw-sbom", "sc-sw-updates"}},
			{Title: "Continuity", Required: []string{"sc-cont-alternates", "sc-cont-exit"}},
		},
		Thresholds: RiskThresholds{Medium: 40, Good: 70},
		Catalog: []Recommendation{
			{ID: "sc-rec-register", Priority: PriorityCritical, MinScore: 45, Title: "Build a vendor register", Description: "List every vendor with system or data access, with an owner and criticality rating.", Citation: "NIST SP 800-161 ID.SC-2"},
			{ID: "sc-rec-reviews", Priority: PriorityHigh, MinScore: 65, Title: "Review critical vendors", Description: "Tier vendors by impact and put the top tier on an annual security review cycle.", Citation: "NIST SP 800-161 ID.SC-3"},
			{ID: "sc-rec-sbom", Priority: PriorityMedium, MinScore: 75, Title: "Track software components", Description: "Request SBOMs from suppliers and record components for the software you ship.", Citation: "NIST SP 800-161 ID.SC-4"},
			{ID: "sc-rec-contracts", Priority: PriorityLow, MinScore: 85, Title: "Harden vendor contracts", Description: "Add breach-notification windows and data-return clauses at next renewal.", Citation: "NIST SP 800-161 ID.SC-5"},
		},
	}
}

package engine

import "shipline/internal/domain"

// templateTask is one entry of the takeover runbook seeded into every new
// vessel.
type templateTask struct {
	Title           string
	Group           string
	DeadlineSeconds int64
}

var templateTasks = []templateTask{
	{"Task 1: Verify server rack location and ventilation", "Checking Old Systems", 30 * 60},
	{"Task 2: Identify managed switches and trace cables", "Network Setup", 45 * 60},
	{"Task 3: Checking all WANs (SL1, SL2, VSAT etc) - Active or Not", "Network Setup", 60 * 60},
	{"Task 4: Connect EVO router with current onboard setup", "Network Setup", 60 * 60},
	{"Task 5: Crew WiFi - UNIFI", "Network Setup", 60 * 60},
	{"Task 6: Setting up VM for Mail Server", "Mail Server Setup", 60 * 60},
	{"Task 7: Mail Server Setup", "Mail Server Setup", 60 * 60},
	{"Task 8: Verifying Test Email", "Mail Server Setup", 5 * 60},
	{"Task 9: Go to Endpoint Tab to Start Work", "Endpoints", 3 * 60 * 60},
	{"Task 10: Setting up VM for Software", "Server Setup", 60 * 60},
	{"Task 11: Installing softwares in VM", "Server Setup", 2 * 60 * 60},
	{"Task 12: Verify all applications, TV, mails, SOC agent, WiFi from Captain", "Verification", 30 * 60},
	{"Task 13: Sign Off – Get UAT & SR Signed from Master", "Verification", 15 * 60},
}

// templateEndpoints lists the shipboard machines tracked per vessel.
var templateEndpoints = []string{
	"Bridge", "Master", "Shoff", "Shoff 2", "ECR", "ECR 2",
	"Cheng", "CDR", "CDR 2", "Loader", "Chart",
}

// templateEndpointFieldKeys is the software checklist applied to every
// endpoint, all starting pending.
var templateEndpointFieldKeys = []string{
	"tv", "adminAcc", "accDisabled", "windowsKey", "softwareList", "staticIP",
	"noSleep", "rdEnabled", "crowdstrike", "defender", "soc", "emailBackup",
	"navis", "emailSetup", "mack", "ns5", "olp", "compas", "ibis", "oss",
	"proxyOff", "rdpSoftwares", "oneOcean", "bvs",
}

func templateEndpointFields() map[string]string {
	fields := make(map[string]string, len(templateEndpointFieldKeys))
	for _, k := range templateEndpointFieldKeys {
		fields[k] = domain.FieldPending
	}
	return fields
}

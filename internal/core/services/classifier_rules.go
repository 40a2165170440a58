package services

import (
	"regexp"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

// endpointRule maps an endpoint pattern to a category.
type endpointRule struct {
	pattern     *regexp.Regexp
	category    domain.Category
	subcategory string
}

func rule(expr string, category domain.Category, subcategory string) endpointRule {
	return endpointRule{pattern: regexp.MustCompile(expr), category: category, subcategory: subcategory}
}

// defaultEndpointRules is ordered most specific first; the first match wins.
var defaultEndpointRules = []endpointRule{
	rule(`(?i)sources=active_medications`, domain.CategoryMedications, "active"),
	rule(`(?i)medications?[/_-]?history`, domain.CategoryMedications, "history"),
	rule(`(?i)medication|/meds\b|prescription|refill`, domain.CategoryMedications, ""),
	rule(`(?i)allerg`, domain.CategoryAllergies, ""),
	rule(`(?i)problem[_-]?list`, domain.CategoryProblems, "problem_list"),
	rule(`(?i)problems|diagnos|health[_-]?issue`, domain.CategoryProblems, ""),
	rule(`(?i)flowsheet`, domain.CategoryVitals, "flowsheet"),
	rule(`(?i)vital`, domain.CategoryVitals, ""),
	rule(`(?i)(?:lab|test)[_-]?results?`, domain.CategoryLabs, "results"),
	rule(`(?i)/labs?\b|specimen`, domain.CategoryLabs, ""),
	rule(`(?i)immuniz|vaccin`, domain.CategoryImmunizations, ""),
	rule(`(?i)procedure|surgical[_-]?history|surger`, domain.CategoryProcedures, ""),
	rule(`(?i)imaging|radiology`, domain.CategoryImaging, ""),
	rule(`(?i)(?:clinical|progress)[_-]?notes?`, domain.CategoryDocuments, "notes"),
	rule(`(?i)document|attachment|/letters?\b`, domain.CategoryDocuments, ""),
	rule(`(?i)encounter|visit|admission`, domain.CategoryEncounters, ""),
	rule(`(?i)appointment|schedul`, domain.CategoryAppointments, ""),
	rule(`(?i)/orders?\b|referral`, domain.CategoryOrders, ""),
	rule(`(?i)message|inbox|conversation`, domain.CategoryMessages, ""),
	rule(`(?i)insurance|coverage|billing`, domain.CategoryInsurance, ""),
	rule(`(?i)demographic|patient[_-]?header|banner|/profile\b`, domain.CategoryDemographics, ""),
}

// defaultMarkerKeys lists lowercased top-level payload keys per category.
var defaultMarkerKeys = map[domain.Category][]string{
	domain.CategoryMedications:   {"medications", "active_medications", "medication_list", "medicationlist", "meds", "prescriptions"},
	domain.CategoryAllergies:     {"allergies", "allergy_list", "allergylist", "allergyintolerances"},
	domain.CategoryProblems:      {"problems", "problem_list", "problemlist", "diagnoses", "conditions"},
	domain.CategoryVitals:        {"vitals", "vital_signs", "vitalsigns", "flowsheets", "flowsheet"},
	domain.CategoryLabs:          {"labs", "lab_results", "labresults", "results", "specimens"},
	domain.CategoryImmunizations: {"immunizations", "vaccines", "vaccinations"},
	domain.CategoryProcedures:    {"procedures", "surgical_history", "surgeries"},
	domain.CategoryEncounters:    {"encounters", "visits", "admissions"},
	domain.CategoryDocuments:     {"documents", "attachments", "document_list", "documentlist", "clinical_notes"},
	domain.CategoryImaging:       {"imaging", "imaging_studies", "radiology"},
	domain.CategoryOrders:        {"orders", "referrals"},
	domain.CategoryAppointments:  {"appointments", "upcoming_appointments", "past_appointments"},
	domain.CategoryDemographics:  {"demographics", "patient_demographics", "patient_info", "patientinfo"},
	domain.CategoryMessages:      {"messages", "conversations", "threads"},
	domain.CategoryInsurance:     {"insurance", "coverages", "guarantors"},
}

// typeMarkerKeys are keys whose string values name a vendor entity type.
var typeMarkerKeys = map[string]bool{
	"$type":        true,
	"__type":       true,
	"_type":        true,
	"@type":        true,
	"__typename":   true,
	"resourcetype": true,
	"entitytype":   true,
}

// entityName maps a substring of a vendor type name to a category.
type entityName struct {
	substr   string
	category domain.Category
}

// defaultEntityNames is checked in order against lowercased type marker values.
var defaultEntityNames = []entityName{
	{"medication", domain.CategoryMedications},
	{"prescription", domain.CategoryMedications},
	{"allerg", domain.CategoryAllergies},
	{"problem", domain.CategoryProblems},
	{"diagnosis", domain.CategoryProblems},
	{"condition", domain.CategoryProblems},
	{"flowsheet", domain.CategoryVitals},
	{"vital", domain.CategoryVitals},
	{"observation", domain.CategoryLabs},
	{"labresult", domain.CategoryLabs},
	{"labcomponent", domain.CategoryLabs},
	{"immunization", domain.CategoryImmunizations},
	{"procedure", domain.CategoryProcedures},
	{"imaging", domain.CategoryImaging},
	{"document", domain.CategoryDocuments},
	{"note", domain.CategoryDocuments},
	{"encounter", domain.CategoryEncounters},
	{"appointment", domain.CategoryAppointments},
	{"order", domain.CategoryOrders},
	{"message", domain.CategoryMessages},
	{"coverage", domain.CategoryInsurance},
}

// nestingMarkers are keys that introduce nested collections.
var nestingMarkers = map[string]bool{
	"children":   true,
	"items":      true,
	"sections":   true,
	"groups":     true,
	"rows":       true,
	"entries":    true,
	"nodes":      true,
	"components": true,
	"subitems":   true,
	"columns":    true,
}

// codingSystemKeys maps key substrings to the coding system they indicate.
var codingSystemKeys = []struct {
	substr string
	system string
}{
	{"loinc", "LOINC"},
	{"snomed", "SNOMED"},
	{"icd", "ICD"},
	{"rxnorm", "RxNorm"},
	{"rxcui", "RxNorm"},
	{"cpt", "CPT"},
	{"hcpcs", "HCPCS"},
	{"ndc", "NDC"},
	{"cvx", "CVX"},
	{"codesystem", "generic"},
	{"code_system", "generic"},
}

// Endpoint substrings that mark deliberately provoked traffic.
var (
	triggeredMarkers = []string{"/__trigger", "trigger=", "/__replay"}
	exploredMarkers  = []string{"/__explore", "explore="}
)

// metadataKeys are payload keys holding capture metadata.
var metadataKeys = []string{"_meta", "_capture", "meta"}

// patientIDKeys are metadata fields naming the subject.
var patientIDKeys = []string{"patient_id", "patientId", "patientID", "PatientID", "pat_id"}

// patientEndpointPatterns are tried in order; the generic digit run is last.
var patientEndpointPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[?&](?:patient_?id|pat_?id|pid)=([A-Za-z0-9._-]+)`),
	regexp.MustCompile(`(?i)/patients?/([A-Za-z0-9._-]*\d[A-Za-z0-9._-]*)`),
	regexp.MustCompile(`(?i)/(?:pat|mrn)/([A-Za-z0-9._-]*\d[A-Za-z0-9._-]*)`),
	regexp.MustCompile(`/(\d{6,})(?:[/?#]|$)`),
}

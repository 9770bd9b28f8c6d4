// Package crm is the authenticated dispatcher for the Infusionsoft REST API
// and the resource methods built on it.
//
// Every method is one Call: a verb, a path under the API root, a bearer token
// and an optional JSON body. Tokens are passed per call; the Client never
// stores or refreshes them.
//
//	client := crm.New()
//	appointments, err := client.Appointments(ctx, accessToken,
//		crm.AppointmentFilters{Limit: 20}.FilterSet())
//
// Provider errors are not Go errors. A 401 for an expired token decodes like
// any other body, so callers inspect the returned JSON.
package crm

package domain

// Authorize decides which of the requested task fields the caller may change.
// The organization gate runs first and unconditionally: a caller outside the
// task's organization gets ErrUnauthorized no matter what was requested.
// Admins may change every field. Members may change status only, and only on
// tasks they are assigned to; a request mixing status with any other field is
// rejected whole — no partial application.
func Authorize(caller Caller, task Task, requested []Field) ([]Field, error) {
	if caller.OrganizationID != task.OrganizationID {
		return nil, ErrUnauthorized
	}
	if caller.Role == RoleAdmin {
		return requested, nil
	}
	for _, f := range requested {
		if f != FieldStatus {
			return nil, ErrForbidden
		}
	}
	if len(requested) == 0 {
		return nil, nil
	}
	if !task.IsAssigned(caller.ID) {
		return nil, ErrForbidden
	}
	return requested, nil
}

// AuthorizeTaskDelete gates task deletion: same organization, admin role.
func AuthorizeTaskDelete(caller Caller, task Task) error {
	if caller.OrganizationID != task.OrganizationID {
		return ErrUnauthorized
	}
	if caller.Role != RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// AuthorizeComment gates commenting: the caller must be in the task's
// organization and be either the task creator or one of its assignees.
func AuthorizeComment(caller Caller, task Task) error {
	if caller.OrganizationID != task.OrganizationID {
		return ErrUnauthorized
	}
	if task.CreatedBy != caller.ID && !task.IsAssigned(caller.ID) {
		return ErrForbidden
	}
	return nil
}
